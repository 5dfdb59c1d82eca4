// Package backend implements the backend-specific transport lookups behind
// the CLI commands.
//
// SOLMAN systems address a transport through its change document: the
// change's transport list is read and searched for the transport ID. ABAP
// systems address transports directly and have no notion of a change, so a
// change ID must not be supplied.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmintegration/cmclient/pkg/client"
	"go.uber.org/zap"
)

// Type identifies the kind of Change Management backend.
type Type string

const (
	SOLMAN Type = "SOLMAN"
	ABAP   Type = "ABAP"
)

var (
	ErrUnknownBackend    = errors.New("unknown backend type")
	ErrUnsupported       = errors.New("operation not supported by backend")
	ErrTransportNotFound = errors.New("transport not found")
	ErrChangeIDRequired  = errors.New("change ID is required for SOLMAN backends")
	ErrChangeIDForbidden = errors.New("change ID must not be provided for ABAP backends")
	ErrUnknownField      = errors.New("unknown transport field")
)

// ParseType parses a backend name case-insensitively. An empty name selects
// SOLMAN.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(SOLMAN):
		return SOLMAN, nil
	case string(ABAP):
		return ABAP, nil
	default:
		return "", fmt.Errorf("%w: %q (want SOLMAN or ABAP)", ErrUnknownBackend, s)
	}
}

// Reader is the subset of *client.Client used for lookups.
type Reader interface {
	GetChange(ctx context.Context, changeID string) (*client.Change, error)
	GetChangeTransports(ctx context.Context, changeID string) ([]client.Transport, error)
	GetTransport(ctx context.Context, transportID string) (*client.Transport, error)
}

// Service runs lookups against one backend.
type Service struct {
	backend Type
	reader  Reader
	logger  *zap.Logger
}

// New creates a Service. A nil logger discards output.
func New(backend Type, reader Reader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		reader:  reader,
		logger:  logger.With(zap.String("backend", string(backend))),
	}
}

// Backend returns the backend type the service was created for.
func (s *Service) Backend() Type { return s.backend }

// IsChangeInDevelopment reports whether the change is in development status.
// Only SOLMAN backends manage change documents.
func (s *Service) IsChangeInDevelopment(ctx context.Context, changeID string) (bool, error) {
	if s.backend != SOLMAN {
		return false, fmt.Errorf("%w: change status on %s", ErrUnsupported, s.backend)
	}
	change, err := s.reader.GetChange(ctx, changeID)
	if err != nil {
		return false, err
	}
	return change.IsInDevelopment, nil
}

// ChangeTransports lists the transports of a change in server order,
// optionally keeping only modifiable ones.
func (s *Service) ChangeTransports(ctx context.Context, changeID string, modifiableOnly bool) ([]client.Transport, error) {
	if s.backend != SOLMAN {
		return nil, fmt.Errorf("%w: change transports on %s", ErrUnsupported, s.backend)
	}
	transports, err := s.reader.GetChangeTransports(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if !modifiableOnly {
		return transports, nil
	}
	out := transports[:0]
	for _, t := range transports {
		if t.IsModifiable {
			out = append(out, t)
		}
	}
	s.logger.Debug("filtered modifiable transports",
		zap.String("change_id", changeID),
		zap.Int("kept", len(out)),
	)
	return out, nil
}

// FindTransport resolves a transport. SOLMAN requires changeID and searches
// the change's transports; ABAP rejects a changeID and reads the transport
// directly.
func (s *Service) FindTransport(ctx context.Context, changeID, transportID string) (*client.Transport, error) {
	changeID = strings.TrimSpace(changeID)

	switch s.backend {
	case SOLMAN:
		if changeID == "" {
			return nil, ErrChangeIDRequired
		}
		transports, err := s.reader.GetChangeTransports(ctx, changeID)
		if err != nil {
			return nil, err
		}
		for i := range transports {
			if transports[i].TransportID == transportID {
				return &transports[i], nil
			}
		}
		s.logger.Debug("transport not in change",
			zap.String("change_id", changeID),
			zap.String("transport_id", transportID),
			zap.Int("candidates", len(transports)),
		)
		return nil, fmt.Errorf("%w: transport %q in change %q", ErrTransportNotFound, transportID, changeID)

	case ABAP:
		if changeID != "" {
			return nil, ErrChangeIDForbidden
		}
		return s.reader.GetTransport(ctx, transportID)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.backend)
	}
}

// TransportField resolves a transport and renders one of its fields.
func (s *Service) TransportField(ctx context.Context, changeID, transportID string, f Field) (string, error) {
	if _, err := f.selector(); err != nil {
		return "", err
	}
	t, err := s.FindTransport(ctx, changeID, transportID)
	if err != nil {
		return "", err
	}
	return f.Of(*t)
}

// ── field selectors ─────────────────────────────────────────────────────────

// Field names a printable transport attribute.
type Field string

const (
	FieldOwner       Field = "owner"
	FieldDescription Field = "description"
	FieldModifiable  Field = "modifiable"
)

// Of renders the field of t. Booleans are rendered as "true"/"false".
func (f Field) Of(t client.Transport) (string, error) {
	sel, err := f.selector()
	if err != nil {
		return "", err
	}
	return sel(t), nil
}

func (f Field) selector() (func(client.Transport) string, error) {
	switch f {
	case FieldOwner:
		return func(t client.Transport) string { return t.Owner }, nil
	case FieldDescription:
		return func(t client.Transport) string { return t.Description }, nil
	case FieldModifiable:
		return func(t client.Transport) string { return strconv.FormatBool(t.IsModifiable) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
}
