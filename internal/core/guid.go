package core

import (
	"github.com/google/uuid"
	"github.com/rentnest/nestchat/internal/types"
)

// NewTempID returns a unique id for an optimistic message.
func NewTempID() types.ID {
	return types.ID(types.TempIDPrefix + uuid.NewString())
}
