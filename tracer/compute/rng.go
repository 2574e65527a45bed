package compute

// A PCG hash based random number generator. Each work item owns a generator
// seeded from its pixel index, the sample index and the render seed so that
// work items never share state.
type pcgRand struct {
	state uint32
}

func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func newPixelRand(pixel, sample, seed uint32) *pcgRand {
	return &pcgRand{state: pcg(pixel ^ pcg(sample^pcg(seed)))}
}

// Generate a uniform float in [0, 1) using the top 24 bits of the next state.
func (r *pcgRand) Float32() float32 {
	r.state = pcg(r.state)
	return float32(r.state>>8) / 16777216.0
}
