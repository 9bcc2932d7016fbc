package firestore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

func TestMapWriteError(t *testing.T) {
	err := mapWriteError(status.Error(codes.AlreadyExists, "document already exists"))
	assert.True(t, domain.Is(err, "email_already_in_use"))

	err = mapWriteError(status.Error(codes.PermissionDenied, "Missing or insufficient permissions."))
	var de *domain.Error
	if assert.ErrorAs(t, err, &de) {
		assert.Equal(t, "persistence_failed", de.Code)
		assert.Equal(t, "Missing or insufficient permissions.", de.Message)
	}

	err = mapWriteError(errors.New("plain"))
	assert.True(t, domain.Is(err, "persistence_failed"))
}

func TestMapReadError(t *testing.T) {
	assert.True(t, domain.Is(mapReadError(status.Error(codes.Unavailable, "down")), "db_unavailable"))
	assert.True(t, domain.Is(mapReadError(status.Error(codes.Internal, "boom")), "persistence_failed"))
}
