// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// Epsilon is the machine epsilon for float64.
var Epsilon = math.Nextafter(1, 2) - 1

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// CheckReal checks that got is within ulps machine epsilons of want,
// relative to the larger magnitude of the two.
func CheckReal(t testing.TB, got, want, ulps float64) {
	t.Helper()
	if !scalar.EqualWithinRel(got, want, ulps*Epsilon) {
		t.Errorf("got %.17g, want %.17g (rel tol %g eps)", got, want, ulps)
	}
}

// CheckAbs checks that got is within tol of want.
func CheckAbs(t testing.TB, got, want, tol float64) {
	t.Helper()
	if !scalar.EqualWithinAbs(got, want, tol) {
		t.Errorf("got %.17g, want %.17g (abs tol %g)", got, want, tol)
	}
}
