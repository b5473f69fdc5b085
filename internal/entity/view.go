package entity

import (
	"fmt"

	"lightwave/internal/model"
)

// Snapshotter hands out feature set copies.
type Snapshotter interface {
	Snapshot(featuresetID string) (model.FeatureSet, error)
}

// View is a rendered entity, ready for JSON.
type View struct {
	UniqueID     string          `json:"unique_id"`
	Kind         Kind            `json:"kind"`
	FeatureSetID string          `json:"featureset_id"`
	Name         string          `json:"name"`
	Description  Description     `json:"description"`
	AssumedState bool            `json:"assumed_state"`
	Hidden       bool            `json:"hidden"`
	State        State           `json:"state"`
	Attributes   map[string]*int `json:"attributes"`
	Device       DeviceInfo      `json:"device"`
}

// Render projects p against a fresh snapshot of its feature set.
func Render(src Snapshotter, p Projection) (View, error) {
	fs, err := src.Snapshot(p.FeatureSetID())
	if err != nil {
		return View{}, fmt.Errorf("render %s: %w", p.UniqueID(), err)
	}
	st, err := p.Project(fs)
	if err != nil {
		return View{}, fmt.Errorf("render %s: %w", p.UniqueID(), err)
	}
	return View{
		UniqueID:     p.UniqueID(),
		Kind:         p.Kind(),
		FeatureSetID: fs.ID,
		Name:         fs.Name,
		Description:  p.Description(),
		AssumedState: p.AssumedState(),
		Hidden:       p.Hidden(),
		State:        st,
		Attributes:   ExtraAttributes(fs),
		Device:       p.Device(),
	}, nil
}

// FindButton returns the button projection for a feature set and key.
func FindButton(projections []Projection, featuresetID, key string) (*Button, bool) {
	for _, p := range projections {
		b, ok := p.(*Button)
		if ok && b.featuresetID == featuresetID && b.desc.Key == key {
			return b, true
		}
	}
	return nil, false
}

// CarryOverButtons copies the last recorded event of each button in prev
// onto the button with the same unique id in next.
func CarryOverButtons(prev, next []Projection) {
	last := make(map[string]string)
	for _, p := range prev {
		if b, ok := p.(*Button); ok {
			if ev := b.LastEvent(); ev != "" {
				last[b.UniqueID()] = ev
			}
		}
	}
	if len(last) == 0 {
		return
	}
	for _, p := range next {
		if b, ok := p.(*Button); ok {
			if ev, ok := last[b.UniqueID()]; ok {
				b.Record(ev)
			}
		}
	}
}
