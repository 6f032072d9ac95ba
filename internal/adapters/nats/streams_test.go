package natsadapter

import (
	"strings"
	"testing"
)

func TestStreamsCoverSubjects(t *testing.T) {
	subjects := []string{
		SubjectHazardZoneUpdated,
		SubjectWildfireTimelineLoaded,
		SubjectWildfireTimelineIngested,
	}
	for _, subj := range subjects {
		matched := 0
		for _, st := range Streams() {
			for _, pattern := range st.Subjects {
				if strings.HasSuffix(pattern, ".>") && strings.HasPrefix(subj, strings.TrimSuffix(pattern, ">")) {
					matched++
				}
			}
		}
		if matched != 1 {
			t.Errorf("subject %s matched %d streams, want exactly 1", subj, matched)
		}
	}
}

func TestStreamsKeepLatestOnly(t *testing.T) {
	for _, st := range Streams() {
		if st.MaxMsgsPerSubject != 1 {
			t.Errorf("stream %s keeps %d messages per subject", st.Name, st.MaxMsgsPerSubject)
		}
	}
}
