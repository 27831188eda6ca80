package server

import (
	"encoding/json"
	"net/http"

	"github.com/structmine/structmine/pkg/pipeline"
	"github.com/structmine/structmine/pkg/store"
)

// detectResponse is the JSON body returned by POST /api/detect.
type detectResponse struct {
	Run     *store.RunRecord `json:"run"`
	Decomps []decompSummary  `json:"decomps"`
	Cached  bool             `json:"cached"`
}

// decompSummary describes one ranked decomposition.
type decompSummary struct {
	Rank      int      `json:"rank"`
	Value     float64  `json:"value"`
	NBlocks   int      `json:"nblocks"`
	NMaster   int      `json:"nmaster"`
	NLinking  int      `json:"nlinking"`
	Detectors []string `json:"detectors,omitempty"`
}

// newDetectResponse flattens a pipeline result into the response shape.
func newDetectResponse(rec *store.RunRecord, result *pipeline.Result) detectResponse {
	resp := detectResponse{
		Run:     rec,
		Decomps: make([]decompSummary, 0, len(result.Decomps)),
		Cached:  result.CacheInfo.DetectionHit,
	}
	for i, ranked := range result.Decomps {
		p := ranked.Decomp
		sum := decompSummary{
			Rank:     i + 1,
			Value:    ranked.Value,
			NBlocks:  p.NBlocks(),
			NMaster:  len(p.Masterconss()),
			NLinking: len(p.Linkingvars()),
		}
		for _, step := range p.Chain() {
			sum.Detectors = append(sum.Detectors, step.Detector)
		}
		resp.Decomps = append(resp.Decomps, sum)
	}
	return resp
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error as a JSON response.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
