package kalibrr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/mitchellh/mapstructure"
)

type job struct {
	ID             int64   `mapstructure:"id"`
	Name           string  `mapstructure:"name"`
	Slug           string  `mapstructure:"slug"`
	CompanyName    string  `mapstructure:"company_name"`
	ActivationDate string  `mapstructure:"activation_date"`
	Tenure         string  `mapstructure:"tenure"`
	Description    string  `mapstructure:"description"`
	SalaryShown    bool    `mapstructure:"salary_shown"`
	BaseSalary     float64 `mapstructure:"base_salary"`
	MaximumSalary  float64 `mapstructure:"maximum_salary"`
	SalaryCurrency string  `mapstructure:"salary_currency"`
	SalaryInterval string  `mapstructure:"salary_interval"`
	Company        struct {
		Code string `mapstructure:"code"`
	} `mapstructure:"company"`
	GoogleLocation struct {
		AddressComponents struct {
			City   string `mapstructure:"city"`
			Region string `mapstructure:"region"`
		} `mapstructure:"address_components"`
	} `mapstructure:"google_location"`
}

// MapToCanonical implements adapter.Adapter.
func (a *Adapter) MapToCanonical(rec adapter.RawRecord) (domain.Listing, error) {
	var j job
	if err := mapstructure.WeakDecode(map[string]any(rec), &j); err != nil {
		return domain.Listing{}, fmt.Errorf("%w: %w", domain.ErrMapping, err)
	}

	l := domain.Listing{
		Source:         domain.SourceKalibrr,
		PostedDate:     adapter.NormalizeDate(j.ActivationDate),
		Title:          strings.TrimSpace(j.Name),
		Company:        domain.OrUnspecified(j.CompanyName),
		Location:       domain.OrUnspecified(location(j)),
		EmploymentType: domain.OrUnspecified(j.Tenure),
		Seniority:      domain.Unspecified,
		Compensation:   domain.OrUnspecified(salary(j)),
		Description:    domain.OrUnspecified(adapter.FlattenHTML(j.Description)),
		URL:            a.listingURL(j),
	}
	if err := l.Validate(); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func (a *Adapter) listingURL(j job) string {
	if j.ID == 0 || j.Company.Code == "" {
		return ""
	}
	return fmt.Sprintf("%s/c/%s/jobs/%d/%s", a.opts.SiteURL, j.Company.Code, j.ID, j.Slug)
}

func location(j job) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{j.GoogleLocation.AddressComponents.City, j.GoogleLocation.AddressComponents.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func salary(j job) string {
	if !j.SalaryShown {
		return ""
	}
	currency := strings.TrimSpace(j.SalaryCurrency)
	switch {
	case j.BaseSalary > 0 && j.MaximumSalary > 0:
		return fmt.Sprintf("%s %s - %s per %s", currency, thousands(j.BaseSalary), thousands(j.MaximumSalary), j.SalaryInterval)
	case j.BaseSalary > 0:
		return fmt.Sprintf("%s %s per %s", currency, thousands(j.BaseSalary), j.SalaryInterval)
	case j.MaximumSalary > 0:
		return fmt.Sprintf("Up to %s %s per %s", currency, thousands(j.MaximumSalary), j.SalaryInterval)
	default:
		return ""
	}
}

// thousands renders whole amounts with comma grouping.
func thousands(v float64) string {
	s := strconv.FormatInt(int64(math.Round(v)), 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
