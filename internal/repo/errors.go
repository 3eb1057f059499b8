package repo

import "errors"

// ErrNotFound — запись не найдена в архиве.
var ErrNotFound = errors.New("not found")
