package client

import (
	"strings"
)

// Change is a unit of work in Change Management that groups transports.
type Change struct {
	ChangeID        string `json:"change_id" yaml:"change_id"`
	IsInDevelopment bool   `json:"is_in_development" yaml:"is_in_development"`
}

// Transport is a deployable package of backend modifications created under a
// Change.
type Transport struct {
	TransportID  string `json:"transport_id" yaml:"transport_id"`
	IsModifiable bool   `json:"is_modifiable" yaml:"is_modifiable"`
	Description  string `json:"description" yaml:"description"`
	Owner        string `json:"owner" yaml:"owner"`
}

// changeFrom builds a Change and checks that the server answered for the
// requested key.
func changeFrom(p properties, requested string) (Change, error) {
	id, err := p.String("ChangeID")
	if err != nil {
		return Change{}, err
	}
	if id != requested {
		return Change{}, consistencyError("ChangeID", requested, id)
	}
	dev, err := p.Bool("IsInDevelopment")
	if err != nil {
		return Change{}, err
	}
	return Change{ChangeID: id, IsInDevelopment: dev}, nil
}

func transportFrom(p properties) (Transport, error) {
	var (
		t   Transport
		err error
	)
	if t.TransportID, err = p.String("TransportID"); err != nil {
		return Transport{}, err
	}
	if t.IsModifiable, err = p.Bool("IsModifiable"); err != nil {
		return Transport{}, err
	}
	if t.Description, err = p.String("Description"); err != nil {
		return Transport{}, err
	}
	if t.Owner, err = p.String("Owner"); err != nil {
		return Transport{}, err
	}
	return t, nil
}

// parseBool accepts "true" in any letter case; every other value is false.
func parseBool(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
