package model

// FrameFeatureRecord is the normalized unit emitted by an external feature
// extractor for a single frame or segment. Metric keys are level-specific:
// "EAR" for blink, "yaw"/"pitch"/"roll"/"landmark_shift" for headpose,
// "texture_score" for texture, "hue_delta"/"sat_delta"/"luma_delta" for
// color, "MAR"/"phoneme_energy" for lipsync, "emotion"/"confidence" for
// expression. Records are immutable once produced.
type FrameFeatureRecord struct {
	FrameIndex int                `json:"frame_index"`
	Timestamp  float64            `json:"timestamp"`
	Level      Level              `json:"level_id"`
	Metrics    map[string]float64 `json:"raw_metrics"`
}

// VideoFeatures holds all extractor output for one video, grouped by level.
// Each analysis run owns its VideoFeatures exclusively; nothing is shared
// across concurrent runs. LoadErrors carries levels whose feature file was
// unreadable or malformed; the pipeline fails those levels individually
// instead of losing the whole video.
type VideoFeatures struct {
	VideoID    string                         `json:"video_id"`
	Records    map[Level][]FrameFeatureRecord `json:"records"`
	LoadErrors map[Level]string               `json:"load_errors,omitempty"`
}

// ForLevel returns the records supplied for the given level, which may be
// empty when the extractor produced nothing.
func (vf *VideoFeatures) ForLevel(l Level) []FrameFeatureRecord {
	if vf.Records == nil {
		return nil
	}
	return vf.Records[l]
}

// LoadError returns the load failure recorded for a level, if any.
func (vf *VideoFeatures) LoadError(l Level) (string, bool) {
	msg, ok := vf.LoadErrors[l]
	return msg, ok
}
