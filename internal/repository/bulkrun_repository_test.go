package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("unique-violation code should match")
	}
	if !isUniqueViolation(fmt.Errorf("claim run: %w", &pq.Error{Code: "23505"})) {
		t.Error("wrapped unique violation should match")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign-key violation must not read as a lost claim race")
	}
	if isUniqueViolation(errors.New("connection reset")) {
		t.Error("arbitrary errors must not read as a lost claim race")
	}
}
