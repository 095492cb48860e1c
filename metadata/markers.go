package metadata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tarantool/go-persist/enum"
)

// ErrInvalidMarker is returned when a marker struct tag cannot be parsed.
var ErrInvalidMarker = errors.New("invalid marker")

// Struct tags read by the default introspector.
const (
	// ReplicateTag marks a replicated field: `replicate:"owner-to-server,initial-only"`.
	// An empty value replicates from server to client.
	ReplicateTag = "replicate"
	// OwnedTag marks a field holding references to entities owned by the
	// component: `owned:""`.
	OwnedTag = "owned"
)

// Marker is a behavioral annotation attached to a component type or field.
type Marker interface {
	MarkerName() string
}

// MarkerProvider is implemented by component types declaring their own
// type level markers. ComponentMarkers is called on the zero value.
type MarkerProvider interface {
	ComponentMarkers() []Marker
}

// ReplicationType is the direction a replicated value travels.
type ReplicationType uint8

const (
	// ServerToClient replicates from the server to every client.
	ServerToClient ReplicationType = iota
	// ServerToOwner replicates from the server to the owning client only.
	ServerToOwner
	// OwnerToServer replicates from the owning client to the server.
	OwnerToServer
	// OwnerToServerToClient replicates from the owner to the server and on to
	// the other clients.
	OwnerToServerToClient
)

// ReplicationTypes is the declared set of replication types.
var ReplicationTypes = enum.MustDeclare( //nolint:gochecknoglobals
	ServerToClient, ServerToOwner, OwnerToServer, OwnerToServerToClient,
)

func (r ReplicationType) String() string {
	switch r {
	case ServerToClient:
		return "server-to-client"
	case ServerToOwner:
		return "server-to-owner"
	case OwnerToServer:
		return "owner-to-server"
	case OwnerToServerToClient:
		return "owner-to-server-to-client"
	default:
		return fmt.Sprintf("ReplicationType(%d)", uint8(r))
	}
}

// IsReplicateFromOwner reports whether values travel from the owning client.
func (r ReplicationType) IsReplicateFromOwner() bool {
	return r == OwnerToServer || r == OwnerToServerToClient
}

// Replicate marks a replicated type or field.
type Replicate struct {
	Type ReplicationType
	// InitialOnly replicates the value only when the component is first sent.
	InitialOnly bool
}

// MarkerName implements Marker.
func (Replicate) MarkerName() string { return "replicate" }

// ForceBlockActive makes blocks carrying the component active entities.
type ForceBlockActive struct {
	RetainUnalteredOnBlockChange bool
}

// MarkerName implements Marker.
func (ForceBlockActive) MarkerName() string { return "force-block-active" }

// RequiresBlockLifecycleEvents makes blocks carrying the component receive
// lifecycle events.
type RequiresBlockLifecycleEvents struct{}

// MarkerName implements Marker.
func (RequiresBlockLifecycleEvents) MarkerName() string { return "requires-block-lifecycle-events" }

// OwnedReference marks a field whose entity references are owned by the
// component: they are copied and destroyed with it.
type OwnedReference struct{}

// MarkerName implements Marker.
func (OwnedReference) MarkerName() string { return "owned" }

func parseReplicate(tag string) (Replicate, error) {
	out := Replicate{Type: ServerToClient, InitialOnly: false}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)

		switch {
		case part == "":
		case strings.EqualFold(part, "initial-only"):
			out.InitialOnly = true
		default:
			typ, ok := ReplicationTypes.ByName(part)
			if !ok {
				return Replicate{}, fmt.Errorf("%w: %s:%q", ErrInvalidMarker, ReplicateTag, part)
			}

			out.Type = typ.(ReplicationType) //nolint:forcetypeassert
		}
	}

	return out, nil
}

// fieldMarkers reads the markers declared in the tags of field.
func fieldMarkers(field reflect.StructField) ([]Marker, error) {
	var out []Marker

	if tag, ok := field.Tag.Lookup(ReplicateTag); ok {
		replicate, err := parseReplicate(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		out = append(out, replicate)
	}

	if _, ok := field.Tag.Lookup(OwnedTag); ok {
		out = append(out, OwnedReference{})
	}

	return out, nil
}

func findMarker[M Marker](markers []Marker) (M, bool) {
	for _, m := range markers {
		if typed, ok := m.(M); ok {
			return typed, true
		}
	}

	var zero M

	return zero, false
}
