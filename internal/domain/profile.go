package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Span times one named stage of a run.
type Span struct {
	Name     string  `json:"name"`
	Elapsed  *int64  `json:"elapsedMs"`
	SubSpans []*Span `json:"subSpans,omitempty"`

	startTs    time.Time
	subProfile *Profile
}

type profileContextKey struct{}

// Profile is an ordered list of spans. Not safe for concurrent use.
type Profile struct {
	Spans   []*Span `json:"spans"`
	TotalMs *int64  `json:"totalMs"`

	startTs time.Time
}

func NewProfile() (*Profile, func()) {
	p := &Profile{
		Spans:   []*Span{},
		startTs: time.Now(),
	}
	return p, p.End
}

func (p *Profile) End() {
	if p.TotalMs != nil {
		return
	}
	if len(p.Spans) > 0 {
		p.Spans[len(p.Spans)-1].End()
	}
	t := time.Since(p.startTs).Milliseconds()
	p.TotalMs = &t
}

func (s *Span) End() {
	if s.Elapsed == nil {
		t := time.Since(s.startTs).Milliseconds()
		s.Elapsed = &t
	}
	if s.subProfile != nil {
		s.SubSpans = s.subProfile.Spans
	}
}

// StartNewSpan ends the previous span and starts a new one.
func (p *Profile) StartNewSpan(name string) (*Span, func()) {
	if len(p.Spans) > 0 {
		p.Spans[len(p.Spans)-1].End()
	}
	s := &Span{
		Name:    name,
		startTs: time.Now(),
	}
	p.Spans = append(p.Spans, s)
	return s, s.End
}

func (s *Span) NewSubProfile() (*Profile, func()) {
	if s.subProfile == nil {
		s.subProfile, _ = NewProfile()
	}
	return s.subProfile, s.subProfile.End
}

func (p *Profile) ToJsonBytes() ([]byte, error) {
	return json.Marshal(p)
}

func ContextWithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, p)
}

// ProfileFromContext returns the profile attached to ctx, or a fresh
// detached one so callers never need a nil check.
func ProfileFromContext(ctx context.Context) *Profile {
	if p, ok := ctx.Value(profileContextKey{}).(*Profile); ok {
		return p
	}
	p, _ := NewProfile()
	return p
}
