package utils

import "github.com/google/uuid"

// GenRunID returns a unique identifier for a scheduling run or request.
func GenRunID() string { return uuid.NewString() }
