package model

// Clone returns a deep copy of the result so read-only views cannot alias
// store-owned slices or maps.
func (r AggregateResult) Clone() AggregateResult {
	out := r
	if r.Actions != nil {
		out.Actions = append([]string(nil), r.Actions...)
	}
	if r.Confidences != nil {
		out.Confidences = make(map[string]float64, len(r.Confidences))
		for agent, c := range r.Confidences {
			out.Confidences[agent] = c
		}
	}
	return out
}

// Clone returns a deep copy of the session including its result log.
func (s Session) Clone() Session {
	out := s
	if s.Log != nil {
		out.Log = make([]StageRecord, len(s.Log))
		for i, rec := range s.Log {
			out.Log[i] = StageRecord{
				Stage:      rec.Stage,
				Evaluation: rec.Evaluation.Clone(),
				RecordedAt: rec.RecordedAt,
			}
		}
	}
	return out
}
