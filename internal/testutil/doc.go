// Package testutil contains helper builders and stubs used across tests to
// reduce boilerplate when constructing upstream event sequences and scripted
// sources. These helpers are intentionally minimal and avoid adding
// third‑party dependencies. They are not intended for production usage.
package testutil
