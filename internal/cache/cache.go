package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Nop never stores anything; every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string, any) error { return ErrCacheMiss }

func (Nop) Set(context.Context, string, any) error { return nil }

func (Nop) Delete(context.Context, ...string) error { return nil }

func (Nop) Incr(context.Context, string) (int64, error) { return 0, nil }
