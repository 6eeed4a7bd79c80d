package guide

import "time"

// GroupRecord is one row of the groups table.
type GroupRecord struct {
	ID   GroupID `json:"id"`
	Name string  `json:"name"`
	URL  string  `json:"url,omitempty"`
}

// ChannelRecord is one row of the channels table.
type ChannelRecord struct {
	ID      ChannelID `json:"id"`
	Name    string    `json:"name"`
	URL     string    `json:"url,omitempty"`
	LogoURL string    `json:"logo_url,omitempty"`
}

// ProgramRecord is one scheduled broadcast. Start and Stop are UTC.
type ProgramRecord struct {
	ID                 ProgramID `json:"id"`
	ChannelID          ChannelID `json:"channel"`
	URL                string    `json:"url,omitempty"`
	Start              time.Time `json:"start"`
	Stop               time.Time `json:"stop"`
	Title              string    `json:"title"`
	Subtitle           string    `json:"subtitle,omitempty"`
	Description        string    `json:"description,omitempty"`
	DescriptionFetched bool      `json:"description_fetched"`
	Categories         []string  `json:"categories,omitempty"`
}

// Duration returns Stop - Start.
func (p ProgramRecord) Duration() time.Duration {
	return p.Stop.Sub(p.Start)
}
