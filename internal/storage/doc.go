// Package storage persists named text blobs (year tables, compiled reports).
//
// It currently supports:
//   - "file": plain files under a root directory
//   - "sqlite": a single SQLite database holding every blob
//
// Names are slash-separated relative paths such as "myreport/myreport-2020-all.csv".
package storage
