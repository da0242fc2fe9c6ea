package budget

import (
	"fmt"
	"log"
)

const truncationMarker = "\n\n[... content truncated ...]\n\n"

// CompactObservations bounds the observation history consumed by the
// synthesis call. Entries longer than max_observation_length are
// replaced by a head+tail excerpt around summary_target_length; then
// only the most recent max_full_observations entries are kept, with a
// single marker standing in for the dropped tail. Length capping always
// happens before count capping. The input slice is not modified.
func (m *Manager) CompactObservations(observations []string) []string {
	if !m.cfg.TokenManagement.Enabled || len(observations) == 0 {
		return observations
	}

	obsCfg := m.cfg.TokenManagement.Observations

	// Clamp the excerpt target so head + marker + tail never exceeds the
	// length cap. A non-positive or oversized target falls back to the
	// largest excerpt that still fits.
	maxLen := obsCfg.MaxObservationLength
	target := obsCfg.SummaryTargetLength
	if limit := maxLen - len(truncationMarker); target <= 0 || target > limit {
		target = limit
	}

	capped := make([]string, 0, len(observations))
	truncated := 0
	for _, obs := range observations {
		if maxLen <= 0 || len(obs) <= maxLen {
			capped = append(capped, obs)
			continue
		}
		if target <= 0 {
			// Cap too small for a marker, keep a plain head.
			capped = append(capped, obs[:maxLen])
		} else {
			capped = append(capped, excerpt(obs, target))
		}
		truncated++
	}

	if truncated > 0 {
		log.Printf("Observation compaction: excerpted %d of %d long observations (cap %d chars)",
			truncated, len(observations), obsCfg.MaxObservationLength)
	}

	if len(capped) <= obsCfg.MaxFullObservations {
		return capped
	}

	older := len(capped) - obsCfg.MaxFullObservations
	out := make([]string, 0, obsCfg.MaxFullObservations+1)
	out = append(out, fmt.Sprintf("[%d earlier observations summarized]", older))
	out = append(out, capped[older:]...)

	log.Printf("Observation compaction: %d -> %d observations (max %d full)",
		len(observations), len(out), obsCfg.MaxFullObservations)
	return out
}

// excerpt keeps the head and tail of an oversized entry around a fixed
// total length, with a marker between the two halves.
func excerpt(s string, targetLen int) string {
	if targetLen <= 0 || len(s) <= targetLen {
		return s
	}
	half := targetLen / 2
	return s[:half] + truncationMarker + s[len(s)-half:]
}
