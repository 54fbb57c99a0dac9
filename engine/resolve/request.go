package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/WessleyAI/wessley-remap/engine/domain"
)

// NATS subjects served by the resolver worker.
const (
	SubjectResolve          = "remap.resolve"
	SubjectCatalogueRefresh = "remap.catalogue.refresh"
)

// Request asks for one resolution. When Text is set it is parsed into a
// descriptor and resolved in scored mode; Descriptor and Mode are ignored.
type Request struct {
	Descriptor domain.PartialVehicleDescriptor `json:"descriptor"`
	Text       string                          `json:"text,omitempty"`
	Mode       string                          `json:"mode,omitempty"`
}

// Response carries the selection and, for text requests, the descriptor
// extracted from the text.
type Response struct {
	Selection domain.ResolvedVehicleSelection  `json:"selection"`
	Extracted *domain.PartialVehicleDescriptor `json:"extracted,omitempty"`
	Catalogue string                           `json:"catalogue"`
}

// CatalogueRefresh is broadcast to ask every replica to refetch the vehicle
// catalogue.
type CatalogueRefresh struct {
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Handle validates and answers a Request. Unresolvable vehicles are not
// errors; only malformed requests are.
func (r *Resolver) Handle(ctx context.Context, req Request) (Response, error) {
	if text := strings.TrimSpace(req.Text); text != "" {
		sel, d := r.ResolveText(ctx, text)
		return Response{Selection: sel, Extracted: &d, Catalogue: r.Snapshot().Version}, nil
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", domain.ErrInvalidDescriptor, err)
	}
	if err := domain.ValidateDescriptor(req.Descriptor); err != nil {
		return Response{}, err
	}
	return Response{Selection: r.Resolve(ctx, req.Descriptor, mode), Catalogue: r.Snapshot().Version}, nil
}
