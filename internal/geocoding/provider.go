package geocoding

import (
	"context"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/capitals/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and a free-text address as input,
// and returns the best matching coordinates or an error if nothing matched.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// ErrNoMatch is wrapped by every provider error that means the service answered but found
// nothing for the address. Callers may retry such addresses with a coarser query.
var ErrNoMatch = errors.New("no match for address")

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
