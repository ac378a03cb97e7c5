package nengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssets() (*AssetServer, *fakeDevice) {
	dev := &fakeDevice{}
	return NewAssetServer(dev, NewDefaultLogger("test", false)), dev
}

func TestAssetServer_CreateTexture(t *testing.T) {
	assets, _ := newTestAssets()

	a := assets.CreateTexture(make([]byte, 16), 2, 2)
	b := assets.CreateTexture(make([]byte, 16), 2, 2)
	assert.NotEqual(t, a, b, "asset ids must be unique")
}

func TestAssetServer_CreateMeshModel(t *testing.T) {
	assets, _ := newTestAssets()

	texture := assets.CreateTexture(make([]byte, 4), 1, 1)
	id := assets.CreateMeshModel(
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]uint16{0, 1, 2},
		texture,
	)

	mesh := assets.Model(id)
	assert.Equal(t, uint32(3), mesh.IndexCount)
	assert.Equal(t, BufferUsageVertex, mesh.VertexBuffer.(*fakeBuffer).usage)
	assert.Equal(t, BufferUsageIndex, mesh.IndexBuffer.(*fakeBuffer).usage)
	require.NotNil(t, assets.MaterialLayout())

	material := mesh.Material.(*fakeBindGroup)
	assert.Equal(t, materialLayoutEntries, material.layout)
}

func TestAssetServer_MeshModelsShareOneSampler(t *testing.T) {
	assets, dev := newTestAssets()

	texture := assets.CreateTexture(make([]byte, 4), 1, 1)
	assets.CreateMeshModel([]float32{0, 0, 0}, []uint16{0}, texture)
	assets.CreateMeshModel([]float32{0, 0, 0}, []uint16{0}, texture)

	assert.Equal(t, 1, dev.samplers)
}

func TestAssetServer_UnknownTexturePanics(t *testing.T) {
	assets, _ := newTestAssets()
	require.Panics(t, func() {
		assets.CreateMeshModel([]float32{0}, []uint16{0}, AssetId("missing"))
	})
}

func TestAssetServer_UnknownModelPanics(t *testing.T) {
	assets, _ := newTestAssets()
	require.Panics(t, func() { assets.Model(AssetId("missing")) })
}

func TestAssetServer_MaterialLayoutNilBeforeFirstMesh(t *testing.T) {
	assets, _ := newTestAssets()
	assert.Nil(t, assets.MaterialLayout())
}
