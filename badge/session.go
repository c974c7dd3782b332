package badge

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is how record timestamps are shown and logged
const TimeLayout = "2006/01/02 15:04"

const (
	AccessNormal   = 0
	AccessElevated = 1
)

var ErrDuplicate = errors.New("badge already registered")

// Record is one accepted badge read
type Record struct {
	Time       time.Time
	Name       string
	EmployeeID string
	BadgeID    string
	Access     int
}

// Row returns the record as log columns
func (r Record) Row() []string {
	return []string{
		r.Time.Format(TimeLayout),
		r.Name,
		r.EmployeeID,
		r.BadgeID,
		strconv.Itoa(r.Access),
	}
}

// AccessLabel renders an access level for display
func AccessLabel(access int) string {
	if access == AccessElevated {
		return fmt.Sprintf("%d (elevated)", access)
	}
	return fmt.Sprintf("%d (normal)", access)
}

// Session tracks the badges seen since the port was opened and the
// optional log they are recorded to. It is owned by a single goroutine.
type Session struct {
	seen   map[string]struct{}
	access int
	log    *Log
}

func NewSession() *Session {
	return &Session{seen: make(map[string]struct{})}
}

// Access is the level stamped on newly accepted records
func (s *Session) Access() int {
	return s.access
}

// ToggleAccess flips between normal and elevated access
func (s *Session) ToggleAccess() int {
	s.access = 1 - s.access
	return s.access
}

// Seen returns the number of distinct badges accepted
func (s *Session) Seen() int {
	return len(s.seen)
}

// Accept registers id. A repeated id returns ErrDuplicate and is not logged.
// If writing the log fails the record is still accepted and returned along
// with the error.
func (s *Session) Accept(id string, now time.Time) (Record, error) {
	if _, ok := s.seen[id]; ok {
		return Record{}, errors.Wrap(ErrDuplicate, id)
	}
	s.seen[id] = struct{}{}

	rec := Record{
		Time:    now,
		BadgeID: id,
		Access:  s.access,
	}
	if s.log != nil {
		if err := s.log.Write(rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Reset forgets every badge seen so far
func (s *Session) Reset() {
	s.seen = make(map[string]struct{})
}

// Recording reports whether a log is open
func (s *Session) Recording() bool {
	return s.log != nil
}

// LogPath returns the path of the open log, if any
func (s *Session) LogPath() string {
	if s.log == nil {
		return ""
	}
	return s.log.Path()
}

// StartLog opens path for appending. Any log already open is closed first.
func (s *Session) StartLog(path string, enc Encoding) error {
	if err := s.StopLog(); err != nil {
		return err
	}
	l, err := OpenLog(path, enc)
	if err != nil {
		return err
	}
	s.log = l
	return nil
}

// StopLog closes the log. It is a no-op when not recording.
func (s *Session) StopLog() error {
	if s.log == nil {
		return nil
	}
	err := s.log.Close()
	s.log = nil
	return err
}
