package fuzzy

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/shared"
)

// Matcher accepts catalog candidates whose name and primary artist both resemble the
// local tags.
type Matcher struct {
	Tolerance Tolerance
	Measures  []Measure
	logger    *log.Logger
}

// NewMatcher returns a matcher at [Normal] tolerance over [DefaultMeasures].
func NewMatcher(logger *log.Logger) *Matcher {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Matcher{Tolerance: Normal, Measures: DefaultMeasures, logger: logger}
}

// Match returns the first candidate, in catalog order, that passes on both the item
// name and the first artist. Later candidates are never consulted once one passes, even
// if they would score higher.
func (m *Matcher) Match(candidates []models.Candidate, local models.LocalTrackInfo) (models.Candidate, bool) {
	for i, c := range candidates {
		item := local.Item(c.Kind)
		if !Approximately(c.Name, item, m.Tolerance, m.Measures...) {
			continue
		}
		if !Approximately(c.FirstArtist(), local.ArtistName, m.Tolerance, m.Measures...) {
			continue
		}

		m.logger.Debug("candidate accepted", "index", i, "name", c.Name, "artist", c.FirstArtist())
		return c, true
	}

	m.logger.Debug("no candidate accepted", "candidates", len(candidates))
	return models.Candidate{}, false
}
