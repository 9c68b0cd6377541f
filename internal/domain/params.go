package domain

import "strings"

// SearchParameters describes one user-visible run request.
type SearchParameters struct {
	Sources        []Source  `json:"sources"`
	DateRange      DateRange `json:"dateRange"`
	Keywords       string    `json:"keywords"`
	RequestingUser string    `json:"requestingUser"`
}

// Validate rejects empty or unknown sources and unknown date ranges.
// Duplicate sources are removed, keeping submission order.
func (p *SearchParameters) Validate() error {
	if len(p.Sources) == 0 {
		return NewValidationError("sources", "at least one source is required")
	}

	seen := make(map[Source]struct{}, len(p.Sources))
	deduped := make([]Source, 0, len(p.Sources))
	for _, raw := range p.Sources {
		s, err := ParseSource(string(raw))
		if err != nil {
			return err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		deduped = append(deduped, s)
	}
	p.Sources = deduped

	dr, err := ParseDateRange(string(p.DateRange))
	if err != nil {
		return err
	}
	p.DateRange = dr
	p.Keywords = strings.TrimSpace(p.Keywords)

	return nil
}

// ForSource projects the parameters onto a single source.
func (p SearchParameters) ForSource(s Source) SearchParameters {
	return SearchParameters{
		Sources:        []Source{s},
		DateRange:      p.DateRange,
		Keywords:       p.Keywords,
		RequestingUser: p.RequestingUser,
	}
}
