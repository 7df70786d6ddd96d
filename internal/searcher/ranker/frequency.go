package ranker

// FrequencyWeight is the saturated, length-normalised term frequency
//
//	f·(k1+1) / (f + k1·(1 − b + b·docLen/avgdl))
//
// It is 0 when the term is absent (f == 0) or the corpus is empty
// (avgdl == 0).
func FrequencyWeight(termFreq int, docLength int, avgDocLength float64, k1, b float64) float64 {
	if termFreq <= 0 {
		return 0
	}
	if avgDocLength == 0 {
		return 0
	}
	f := float64(termFreq)
	lengthNorm := 1 - b + b*(float64(docLength)/avgDocLength)
	return (f * (k1 + 1)) / (f + k1*lengthNorm)
}
