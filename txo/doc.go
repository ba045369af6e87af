// Package txo implements the core of the transactional outbox module: domain
// events and their aggregate-side buffer, the outbox record model, the store
// and broker contracts and the polling publisher that forwards committed
// records to a message broker.
//
// The write side of the pattern (collecting events within a business
// transaction and flushing them to the outbox atomically with the mutation)
// lives in the uow package.
package txo
