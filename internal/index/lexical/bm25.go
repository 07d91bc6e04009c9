package lexical

import "math"

// okapiIDF computes log(1 + (N - df + 0.5) / (df + 0.5)). The +1 inside the
// log keeps the value positive even when a term occurs in most documents.
func okapiIDF(n, df int) float64 {
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// saturate applies BM25 term-frequency saturation with document-length
// normalization.
func saturate(tf, docLen, avgdl float64, p Params) float64 {
	norm := p.K1 * (1 - p.B + p.B*docLen/avgdl)
	return tf * (p.K1 + 1) / (tf + norm)
}
