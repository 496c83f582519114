package pipeline

// Status classifies the outcome of processing one image. Every non-success
// status skips the image and continues the batch.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusLoadError          Status = "load-error"
	StatusNoFace             Status = "no-face"
	StatusNoMatch            Status = "no-match"
	StatusNoLandmarks        Status = "no-landmarks"
	StatusDegenerateGeometry Status = "degenerate-geometry"
	StatusWarpError          Status = "warp-error"
	StatusSaveError          Status = "save-error"
)
