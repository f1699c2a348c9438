package tyck

import (
	"reflect"
	"testing"
)

func TestMatchSimple(t *testing.T) {
	intType := reflect.TypeOf(int64(0))
	strType := reflect.TypeOf("")

	tests := []struct {
		name string
		have Info
		want Info
		ok   bool
	}{
		{"same simple type matches", Simple(intType), Simple(intType), true},
		{"different simple types don't match", Simple(intType), Simple(strType), false},
		{"bypass parameter accepts anything", Simple(intType), Bypass(), true},
		{"bypass object matches any parameter", Bypass(), Simple(intType), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.have, tt.want); got != tt.ok {
				t.Errorf("Match(%v, %v) = %v, want %v", tt.have, tt.want, got, tt.ok)
			}
		})
	}
}

func TestMatchContainer(t *testing.T) {
	sliceType := reflect.TypeOf([]int64(nil))
	intType := reflect.TypeOf(int64(0))
	strType := reflect.TypeOf("")

	concreteInt := Container(sliceType, Simple(intType))
	concreteStr := Container(sliceType, Simple(strType))
	generic := Container(sliceType)

	tests := []struct {
		name string
		have Info
		want Info
		ok   bool
	}{
		{"concrete container matches identical concrete parameter", concreteInt, concreteInt, true},
		{"concrete container matches generic parameter", concreteInt, generic, true},
		{"concrete container of different element type does not match", concreteInt, concreteStr, false},
		{"generic container object only matches generic parameter", generic, concreteInt, false},
		{"generic container object matches generic parameter", generic, generic, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.have, tt.want); got != tt.ok {
				t.Errorf("Match(%v, %v) = %v, want %v", tt.have, tt.want, got, tt.ok)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		a    Action
		want string
	}{
		{ActionCopy, "Copy"},
		{ActionMove, "Move"},
		{ActionShare, "Share"},
		{ActionMutShare, "MutShare"},
		{ActionBypass, "Bypass"},
	}
	for _, tt := range tests {
		if got := tt.a.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", tt.a, got, tt.want)
		}
	}
}
