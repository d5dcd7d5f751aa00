// Package core provides the establishment filtering pipeline.
//
// The package holds all domain logic independent of any UI or transport
// layer. The web server and the CLI both drive the same [Service].
//
// # Pipeline
//
//  1. The configured [source.Source] is acquired through a [source.Cache]
//  2. The bytes are parsed into a [table.Table] and kept until the cache refetches
//  3. [Service.Values] lists the distinct Nombre_Establecimiento values
//  4. [Service.Filter] and [Service.Preview] select the matching rows
//  5. [Service.Export] encodes them as an .xlsx named by [ExportFilename]
//
// No step retries. A failed acquisition leaves nothing cached, so the
// next request (a page reload) tries again.
//
// # Errors
//
// Failures keep their type from the package that raised them
// ([source.Error], [table.ParseError], [table.SchemaError],
// [table.ExportError]). [MapError] turns any of them into a
// [UserMessage] with a support code.
package core
