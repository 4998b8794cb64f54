package monitor

import (
	"errors"
	"net/http"

	"github.com/banshee-data/tfgraph/internal/tf"
)

type framesResponse struct {
	Generation uint64         `json:"generation"`
	SessionID  string         `json:"session_id"`
	Frames     []tf.FrameInfo `json:"frames"`
}

type lookupResponse struct {
	Target      string      `json:"target"`
	Source      string      `json:"source"`
	Stamp       string      `json:"stamp"`
	Generation  uint64      `json:"generation"`
	Translation [3]float64  `json:"translation"`
	Rotation    [4]float64  `json:"rotation"` // x, y, z, w
	Matrix      [16]float64 `json:"matrix"`   // row-major
}

func (ws *WebServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	snap := ws.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, framesResponse{
		Generation: snap.Generation(),
		SessionID:  snap.SessionID(),
		Frames:     snap.Describe(),
	})
}

// handleLookup answers GET /api/tf/lookup?target=&source=&t=. Without t the
// newest stamp in the snapshot is used.
func (ws *WebServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, source := q.Get("target"), q.Get("source")
	if target == "" || source == "" {
		writeJSONError(w, http.StatusBadRequest, "target and source are required")
		return
	}
	snap := ws.snapshot(w)
	if snap == nil {
		return
	}

	stamp := snap.NewestStamp()
	if raw := q.Get("t"); raw != "" {
		parsed, err := tf.ParseTime(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		stamp = parsed
	}

	pose, err := snap.LookupTransform(stamp, target, source)
	if err != nil {
		writeJSONError(w, lookupStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{
		Target:      tf.CanonicalFrameID(target),
		Source:      tf.CanonicalFrameID(source),
		Stamp:       stamp.String(),
		Generation:  snap.Generation(),
		Translation: [3]float64{pose.Translation.X, pose.Translation.Y, pose.Translation.Z},
		Rotation:    [4]float64{pose.Rotation.Imag, pose.Rotation.Jmag, pose.Rotation.Kmag, pose.Rotation.Real},
		Matrix:      pose.RowMajor(),
	})
}

func lookupStatus(err error) int {
	switch {
	case errors.Is(err, tf.ErrFrameNotFound), errors.Is(err, tf.ErrNoDataForFrame):
		return http.StatusNotFound
	case errors.Is(err, tf.ErrFramesNotConnected), errors.Is(err, tf.ErrCycleDetected):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
