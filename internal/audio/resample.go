package audio

import "encoding/binary"

// ResamplePCM16 linearly resamples little-endian int16 PCM from srcRate to
// dstRate. Returns data unchanged if the rates already match. The output
// length follows len(samples(data)) * dstRate / srcRate, rounded down, which
// is what the chunk queue's byte-length testable properties assume.
func ResamplePCM16(data []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate || len(data) < 2 {
		return data
	}

	samples := decodeInt16(data)
	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]int16, outLen)

	for i := 0; i < outLen; i++ {
		srcIdx := float64(i) * ratio
		idx := int(srcIdx)
		frac := srcIdx - float64(idx)
		out[i] = interpolate(samples, idx, frac)
	}

	return encodeInt16(out)
}

func interpolate(samples []int16, idx int, frac float64) int16 {
	if idx+1 >= len(samples) {
		if idx >= len(samples) {
			return 0
		}
		return samples[idx]
	}
	a, b := float64(samples[idx]), float64(samples[idx+1])
	return int16(a*(1-frac) + b*frac)
}

func decodeInt16(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

func encodeInt16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
