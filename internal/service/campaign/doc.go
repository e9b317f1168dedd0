// Package campaign implements campaign lifecycle management.
//
// The service layer contains the business logic for creating and querying
// campaigns, including the guard against targeting segments that match no
// customers. It depends on repository interfaces defined in this package
// and should never import from api/.
//
// Repository implementations live in repository/postgres/. Dispatch itself
// is handled by the worker package.
package campaign
