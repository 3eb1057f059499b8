package dispatch

import "errors"

// ErrDispatch — оркестрационный API отклонил создание контекста
// или Job'а. Подлежит retry через state machine.
var ErrDispatch = errors.New("dispatch failed")
