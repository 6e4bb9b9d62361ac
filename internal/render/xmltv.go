// Package render writes the final guide as XMLTV markup.
package render

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"primaguide/internal/domain"
)

// timeLayout is the XMLTV programme timestamp format.
const timeLayout = "20060102150405 -0700"

// tv is the root element of the XMLTV document
type tv struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr"`
	Channels   []channel   `xml:"channel"`
	Programmes []programme `xml:"programme"`
}

type channel struct {
	ID          string `xml:"id,attr"`
	DisplayName string `xml:"display-name"`
}

type programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

// XMLTV renders a guide as an XMLTV document
type XMLTV struct {
	generator string
}

// New creates an XMLTV renderer
func New() *XMLTV {
	return &XMLTV{generator: "primaguide"}
}

// Render writes the channels and programmes as XMLTV. Output is
// deterministic: channels are sorted by id, programmes by channel, start
// time and event id.
func (r *XMLTV) Render(w io.Writer, channels []domain.Channel, programmes []domain.ProgrammeEntry) error {
	doc := tv{Generator: r.generator}

	sorted := make([]domain.Channel, len(channels))
	copy(sorted, channels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, ch := range sorted {
		doc.Channels = append(doc.Channels, channel{ID: ch.ID, DisplayName: ch.DisplayName})
	}

	entries := make([]domain.ProgrammeEntry, len(programmes))
	copy(entries, programmes)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.EventID < b.EventID
	})
	for _, e := range entries {
		doc.Programmes = append(doc.Programmes, programme{
			Start:   e.Start.In(domain.ProviderZone()).Format(timeLayout),
			Stop:    e.Stop.In(domain.ProviderZone()).Format(timeLayout),
			Channel: e.Channel,
			Title:   e.Title,
			Desc:    e.Description,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode XMLTV document: %w", err)
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to finish XMLTV document: %w", err)
	}
	return nil
}
