// Package catalog holds the static event and service data the front ends
// browse. The tables are fixed at build time; there is no inventory or
// availability tracking.
package catalog

import (
	"fmt"
	"strings"

	"suitable-focus/internal/models"
)

// Event is a ticketed event in the catalog. Price is in cents.
type Event struct {
	ID       string
	Title    string
	Date     string
	Location string
	Price    int
}

// Service is a bookable consultation. Price is in cents. Mode distinguishes
// the online and in-person variants of the same offering.
type Service struct {
	ID    string
	Name  string
	Mode  string
	Price int
}

var events = []Event{
	{ID: "bayhill-premier-cup", Title: "Bayhill Premier Cup", Date: "2025-12-15", Location: "South Africa", Price: 45000},
	{ID: "customer-relationships-marketing-project-workflows", Title: "Customer Relationships, Marketing & Project Workflows", Date: "2025-09-17", Location: "Online", Price: 30000},
	{ID: "lets-elevate-cape-town", Title: "Let's Elevate, Cape Town", Date: "2025-11-06", Location: "Workshop 17 Kloof Street", Price: 9000},
	{ID: "lets-elevate-johannesburg", Title: "Let's Elevate, Johannesburg", Date: "2025-11-13", Location: "Workshop 17, Hyde Park", Price: 9000},
	{ID: "lets-elevate-durban", Title: "Let's Elevate, Durban", Date: "2025-11-19", Location: "Workshop 17, Ballito", Price: 9000},
	{ID: "lets-elevate-gqeberha", Title: "Let's Elevate, Gqeberha", Date: "2025-11-26", Location: "TBC", Price: 9000},
}

var services = []Service{
	{ID: "individual-consultation-online", Name: "Online Individual Consultation", Mode: "online", Price: 35000},
	{ID: "individual-consultation-in-person", Name: "In-Person Individual Consultation", Mode: "in-person", Price: 60000},
	{ID: "entrepreneur-consultation-online", Name: "Entrepreneurs and SMEs Consultations (Online)", Mode: "online", Price: 35000},
	{ID: "entrepreneur-consultation-in-person", Name: "Entrepreneurs and SMEs Consultations (In-Person)", Mode: "in-person", Price: 60000},
}

// Events returns the full event catalog.
func Events() []Event {
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Services returns the full service catalog.
func Services() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

// FindEvent looks an event up by its catalog ID.
func FindEvent(id string) (*Event, error) {
	for i := range events {
		if events[i].ID == id {
			e := events[i]
			return &e, nil
		}
	}
	return nil, models.ErrEventNotFound
}

// FindService looks a service up by its catalog ID.
func FindService(id string) (*Service, error) {
	for i := range services {
		if services[i].ID == id {
			s := services[i]
			return &s, nil
		}
	}
	return nil, models.ErrServiceNotFound
}

// CartItem builds the cart line for one ticket to this event. Distinct
// events map to distinct line IDs, so the cart aggregates repeat adds of the
// same ticket into one row.
func (e *Event) CartItem() models.CartItem {
	return models.CartItem{
		ID:       "ticket-" + slug(e.Title),
		Name:     e.Title + " Ticket",
		Price:    e.Price,
		Quantity: 1,
		Kind:     models.ItemKindEvent,
	}
}

// CartItem builds the cart line for booking this service. Each mode of a
// consultation is its own line ID.
func (s *Service) CartItem() models.CartItem {
	return models.CartItem{
		ID:       s.ID,
		Name:     s.Name,
		Price:    s.Price,
		Quantity: 1,
		Kind:     models.ItemKindService,
	}
}

// FormatPrice renders cents as the display amount used across the app,
// e.g. "R 450.00".
func FormatPrice(cents int) string {
	return fmt.Sprintf("R %.2f", float64(cents)/100)
}

// slug lowercases a title and joins its words with hyphens, matching the
// line-ID convention the booking flow has always used.
func slug(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}
