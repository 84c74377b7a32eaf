package models

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const DefaultSearchBaseURL = "https://www.booking.com/searchresults.html"

// SearchParams describes one search results query.
type SearchParams struct {
	BaseURL     string    `yaml:"base_url"`
	Destination string    `yaml:"destination"`
	CheckIn     time.Time `yaml:"check_in"`
	CheckOut    time.Time `yaml:"check_out"`
	Adults      int       `yaml:"adults"`
	Rooms       int       `yaml:"rooms"`
	Children    int       `yaml:"children"`
}

// BuildURL maps the parameters onto the search results request URL.
func (p SearchParams) BuildURL() (string, error) {
	if p.Destination == "" {
		return "", fmt.Errorf("destination is required")
	}
	if !p.CheckIn.IsZero() && !p.CheckOut.IsZero() && !p.CheckOut.After(p.CheckIn) {
		return "", fmt.Errorf("check-out %s must be after check-in %s",
			p.CheckOut.Format(time.DateOnly), p.CheckIn.Format(time.DateOnly))
	}

	base := p.BaseURL
	if base == "" {
		base = DefaultSearchBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("ss", p.Destination)
	if !p.CheckIn.IsZero() {
		q.Set("checkin_monthday", strconv.Itoa(p.CheckIn.Day()))
		q.Set("checkin_year_month", p.CheckIn.Format("2006-01"))
	}
	if !p.CheckOut.IsZero() {
		q.Set("checkout_monthday", strconv.Itoa(p.CheckOut.Day()))
		q.Set("checkout_year_month", p.CheckOut.Format("2006-01"))
	}
	q.Set("group_adults", strconv.Itoa(defaultInt(p.Adults, 2)))
	q.Set("no_rooms", strconv.Itoa(defaultInt(p.Rooms, 1)))
	q.Set("group_children", strconv.Itoa(p.Children))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
