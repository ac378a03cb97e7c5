package nengine

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/google/uuid"
)

// AssetId names a loaded asset. Ids are process-unique and opaque.
type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// MeshModel is a pre-parsed mesh uploaded to the device: vertex/index
// buffers plus a material bind group. DrawIndexedWithModel render
// commands reference these by AssetId.
type MeshModel struct {
	VertexBuffer Buffer
	IndexBuffer  Buffer
	IndexCount   uint32
	Material     BindGroup
}

// AssetServer owns textures and mesh models. Mesh parsing happens
// upstream; the server only takes pre-parsed vertex/index data and
// turns it into device resources.
type AssetServer struct {
	log    Logger
	device Device

	textures map[AssetId]Texture
	models   map[AssetId]*MeshModel

	sampler        Sampler
	materialLayout BindGroupLayout
	haveSampler    bool
}

func NewAssetServer(device Device, log Logger) *AssetServer {
	return &AssetServer{
		log:      log,
		device:   device,
		textures: make(map[AssetId]Texture),
		models:   make(map[AssetId]*MeshModel),
	}
}

// CreateTexture uploads raw RGBA texels.
func (s *AssetServer) CreateTexture(texels []byte, width, height uint32) AssetId {
	id := makeAssetId()
	s.textures[id] = s.device.CreateTexture(texels, width, height)
	return id
}

// LoadTexture decodes a PNG file and uploads it as RGBA.
func (s *AssetServer) LoadTexture(filename string) AssetId {
	file, err := os.Open(filename)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		panic(err)
	}

	bounds := img.Bounds()
	rgbaImg, ok := img.(*image.RGBA)
	if !ok {
		rgbaImg = image.NewRGBA(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				rgbaImg.Set(x, y, img.At(x, y))
			}
		}
	}

	s.log.Debugf("Loaded texture %s (%dx%d)", filename, bounds.Dx(), bounds.Dy())
	return s.CreateTexture(rgbaImg.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()))
}

// CreateMeshModel uploads pre-parsed mesh data and builds its material
// bind group from the given texture. All materials share one layout
// (texture at binding 0, sampler at binding 1) so pipelines can declare
// the shared model-texture slot.
func (s *AssetServer) CreateMeshModel(vertices []float32, indices []uint16, texture AssetId) AssetId {
	tx, ok := s.textures[texture]
	if !ok {
		panic(fmt.Sprintf("unknown texture asset %s", texture))
	}

	if !s.haveSampler {
		s.sampler = s.device.CreateSampler()
		s.haveSampler = true
	}

	material, layout := s.device.CreateBindGroup(
		materialLayoutEntries,
		[]BoundResource{
			{Texture: tx},
			{Sampler: s.sampler},
		},
	)
	if s.materialLayout == nil {
		s.materialLayout = layout
	}

	id := makeAssetId()
	s.models[id] = &MeshModel{
		VertexBuffer: s.device.CreateBuffer(float32Bytes(vertices), BufferUsageVertex),
		IndexBuffer:  s.device.CreateBuffer(uint16Bytes(indices), BufferUsageIndex),
		IndexCount:   uint32(len(indices)),
		Material:     material,
	}
	return id
}

// Model resolves a mesh model id. A missing id is a programming error.
func (s *AssetServer) Model(id AssetId) *MeshModel {
	m, ok := s.models[id]
	if !ok {
		panic(fmt.Sprintf("unknown mesh model asset %s", id))
	}
	return m
}

// MaterialLayout returns the shared model-texture bind-group layout,
// or nil before any material exists.
func (s *AssetServer) MaterialLayout() BindGroupLayout {
	return s.materialLayout
}

var materialLayoutEntries = []BindGroupLayoutEntry{
	{Binding: 0, Visibility: ShaderStageFragment, Kind: BindingTexture2D},
	{Binding: 1, Visibility: ShaderStageFragment, Kind: BindingSampler},
}
