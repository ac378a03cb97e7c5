package nengine

import "fmt"

// sharedPipeline wraps a pipeline handle with a reference count.
// SharePipeline setup commands alias the same entry across models; the
// handle is released when the last owner goes away.
type sharedPipeline struct {
	pipeline Pipeline
	refs     int
}

// ResourceTable holds one model's allocated resources in command
// emission order. Render commands address these lists by position.
// Tables are created by interpreting a setup buffer, mutated only by
// the App, and released when the owning model is removed.
type ResourceTable struct {
	buffers    []Buffer
	bindGroups []BindGroup
	layouts    []BindGroupLayout
	pipelines  []*sharedPipeline
}

func newResourceTable() *ResourceTable {
	return &ResourceTable{}
}

// An out-of-range index is an invariant violation inside the trusted
// process, not input to validate; all accessors panic.

func (t *ResourceTable) buffer(i int) Buffer {
	if i < 0 || i >= len(t.buffers) {
		panic(fmt.Sprintf("resource table has %d buffers, command references %d", len(t.buffers), i))
	}
	return t.buffers[i]
}

func (t *ResourceTable) bindGroup(i int) BindGroup {
	if i < 0 || i >= len(t.bindGroups) {
		panic(fmt.Sprintf("resource table has %d bind groups, command references %d", len(t.bindGroups), i))
	}
	return t.bindGroups[i]
}

func (t *ResourceTable) bindGroupLayout(i int) BindGroupLayout {
	if i < 0 || i >= len(t.layouts) {
		panic(fmt.Sprintf("resource table has %d bind groups, command references %d", len(t.layouts), i))
	}
	return t.layouts[i]
}

func (t *ResourceTable) pipeline(i int) *sharedPipeline {
	if i < 0 || i >= len(t.pipelines) {
		panic(fmt.Sprintf("resource table has %d pipelines, command references %d", len(t.pipelines), i))
	}
	return t.pipelines[i]
}

// release frees everything the table exclusively owns and drops one
// reference from each pipeline, freeing those that hit zero.
func (t *ResourceTable) release(dev Device) {
	for _, b := range t.buffers {
		dev.ReleaseBuffer(b)
	}
	for _, bg := range t.bindGroups {
		dev.ReleaseBindGroup(bg)
	}
	for _, sp := range t.pipelines {
		sp.refs--
		if sp.refs == 0 {
			dev.ReleasePipeline(sp.pipeline)
		}
	}
	t.buffers = nil
	t.bindGroups = nil
	t.layouts = nil
	t.pipelines = nil
}
