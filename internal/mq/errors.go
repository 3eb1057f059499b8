package mq

import "errors"

// Ошибки брокерного слоя.
var (
	// ErrNotConnected — нет открытого канала к брокеру
	// (connect не вызывался или соединение потеряно).
	ErrNotConnected = errors.New("not connected to broker")

	// ErrDeliveriesClosed — канал доставок закрыт брокером.
	ErrDeliveriesClosed = errors.New("deliveries channel closed")
)
