// Package credentials stores per-tool secrets encrypted at rest. The
// gate never inspects credential contents; it only brokers access for
// tools that declare they require them.
package credentials
