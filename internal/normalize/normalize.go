// Package normalize converts heterogeneous raw provider records into the
// canonical lead shape. Each source registers a mapper; records a mapper
// cannot make sense of are skipped, never fatal for the batch.
package normalize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/provider"
)

// Mapper converts one raw record's fields into a lead.
type Mapper func(fields map[string]any) (leads.Lead, error)

var mappers = map[leads.Source]Mapper{
	leads.SourceGoogleMaps: mapGoogleMaps,
	leads.SourceTikTok:     mapTikTok,
	leads.SourceInstagram:  mapInstagram,
}

// Normalizer applies per-source mappers to raw record batches.
type Normalizer struct {
	logger *zap.Logger
}

// New builds a Normalizer. A nil logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Records normalizes a batch in order. Malformed records are logged and
// dropped; the returned count reports how many were skipped.
func (n *Normalizer) Records(records []provider.RawRecord) ([]leads.Lead, int) {
	out := make([]leads.Lead, 0, len(records))
	skipped := 0
	for i, rec := range records {
		lead, err := Record(rec)
		if err != nil {
			skipped++
			n.logger.Warn("dropping malformed record",
				zap.String("provider", string(rec.Provider)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		out = append(out, lead)
	}
	return out, skipped
}

// Record normalizes a single raw record.
func Record(rec provider.RawRecord) (leads.Lead, error) {
	mapper, ok := mappers[rec.Provider]
	if !ok {
		return leads.Lead{}, fmt.Errorf("%w: no mapper for source %q", leads.ErrMalformedRecord, rec.Provider)
	}
	lead, err := mapper(rec.Fields)
	if err != nil {
		return leads.Lead{}, err
	}
	lead.Source = rec.Provider
	return lead, nil
}

func mapGoogleMaps(fields map[string]any) (leads.Lead, error) {
	name := str(fields, "name")
	if name == "" {
		return leads.Lead{}, fmt.Errorf("%w: place has no name", leads.ErrMalformedRecord)
	}
	lead := leads.Lead{
		Name:       name,
		Address:    str(fields, "formatted_address"),
		ExternalID: str(fields, "place_id"),
		Website:    str(fields, "website"),
		City:       str(fields, "city"),
	}
	if lead.City == "" {
		lead.City = extractCity(fields["address_components"])
	}
	return lead, nil
}

func mapTikTok(fields map[string]any) (leads.Lead, error) {
	author := submap(fields, "authorMeta")
	username := str(author, "name")
	if username == "" {
		username = str(fields, "author")
	}
	if username == "" {
		return leads.Lead{}, fmt.Errorf("%w: tiktok record has no author", leads.ErrMalformedRecord)
	}

	name := str(author, "name")
	if name == "" {
		name = str(fields, "nickname")
	}
	bio := str(author, "signature")
	if bio == "" {
		bio = str(fields, "signature")
	}

	return leads.Lead{
		Name:            name,
		TikTokHandle:    username,
		InstagramHandle: HandleFromBio(bio),
		ProfileURL:      "https://www.tiktok.com/@" + username,
		FollowerCount:   num(author, "fans"),
		Notes:           bio,
	}, nil
}

func mapInstagram(fields map[string]any) (leads.Lead, error) {
	username := str(fields, "username")
	if username == "" {
		return leads.Lead{}, fmt.Errorf("%w: instagram record has no username", leads.ErrMalformedRecord)
	}

	name := str(fields, "fullName")
	if name == "" {
		name = str(fields, "full_name")
	}
	if name == "" {
		name = username
	}

	followers := num(fields, "followersCount")
	if followers == 0 {
		followers = num(submap(fields, "edge_followed_by"), "count")
	}

	return leads.Lead{
		Name:            name,
		InstagramHandle: username,
		ProfileURL:      "https://www.instagram.com/" + username + "/",
		FollowerCount:   followers,
		Notes:           str(fields, "biography"),
	}, nil
}

// extractCity picks the locality component, falling back to the first-level
// administrative area when the place has no locality.
func extractCity(components any) string {
	list, ok := components.([]any)
	if !ok {
		return ""
	}
	for _, want := range []string{"locality", "administrative_area_level_1"} {
		for _, c := range list {
			comp, ok := c.(map[string]any)
			if !ok {
				continue
			}
			types, _ := comp["types"].([]any)
			for _, t := range types {
				if t == want {
					if name, ok := comp["long_name"].(string); ok {
						return name
					}
				}
			}
		}
	}
	return ""
}

func str(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}

func submap(fields map[string]any, key string) map[string]any {
	if fields == nil {
		return nil
	}
	m, _ := fields[key].(map[string]any)
	return m
}

// num reads a numeric field. Decoded JSON yields float64, but mappers also
// accept int for records built in process.
func num(fields map[string]any, key string) int64 {
	if fields == nil {
		return 0
	}
	switch v := fields[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
