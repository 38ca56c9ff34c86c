package domain

import "strings"

// ReadingStatus is where a reader is with a book.
type ReadingStatus string

// Reading statuses. The wire values are the ones persisted by earlier versions of bookly.
const (
	StatusWantToRead ReadingStatus = "QUERO_LER"
	StatusReading    ReadingStatus = "LENDO"
	StatusFinished   ReadingStatus = "LIDO"
	StatusPaused     ReadingStatus = "PAUSADO"
	StatusAbandoned  ReadingStatus = "ABANDONADO"
)

// DefaultStatus is assigned when a status is absent or unrecognized.
const DefaultStatus = StatusWantToRead

var allStatuses = []ReadingStatus{
	StatusWantToRead,
	StatusReading,
	StatusFinished,
	StatusPaused,
	StatusAbandoned,
}

var statusLabels = map[ReadingStatus]string{
	StatusWantToRead: "Quero ler",
	StatusReading:    "Lendo",
	StatusFinished:   "Lido",
	StatusPaused:     "Pausado",
	StatusAbandoned:  "Abandonado",
}

// Statuses returns every valid status in display order.
func Statuses() []ReadingStatus {
	out := make([]ReadingStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is one of the known statuses.
func (s ReadingStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable name.
func (s ReadingStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus matches raw case-insensitively after trimming.
func ParseStatus(raw string) (ReadingStatus, bool) {
	s := ReadingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", false
	}
	return s, true
}

// StatusOrDefault parses raw, falling back to DefaultStatus.
func StatusOrDefault(raw string) ReadingStatus {
	if s, ok := ParseStatus(raw); ok {
		return s
	}
	return DefaultStatus
}
