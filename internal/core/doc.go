// Package core implements the content import pipeline.
//
// A batch of tabular files (CSV or spreadsheet) is turned into published
// content items. Each file is read row by row, every row is validated against
// the items that already exist under the target section, its image is stored
// in the media library, and a content item referencing that image is created
// and published. Failures never abort the batch: a bad row is recorded and
// the next row is processed, a bad file is recorded and the next file is
// processed.
//
// # Components
//
//   - [RowParser]: opens one source file and yields [ImportRow] values lazily.
//     [CSVParser] and [SpreadsheetParser] are registered by extension in a
//     [ParserRegistry].
//   - [DuplicateIndex]: names of the items already under the section node.
//   - [ImageIngestor]: checks an image path against the allowed extensions,
//     stores the binary through a [BlobStore] and records it in the
//     [MediaRepository].
//   - [ContentWriter]: creates, saves and publishes one item through the
//     [ContentRepository].
//   - [Importer]: the controller; [Importer.ImportBatch] is the entry point.
//
// # Results
//
// [Importer.ImportBatch] returns an [ImportOutcome] holding one [FileResult]
// per input path. Every failure is an [*ImportError] carrying an [ErrorKind],
// the file, and the 1-indexed source row where it applies. [ImportOutcome.Message]
// renders the single human-readable summary shown to users, and [MapError]
// maps any error to a support code.
//
// # Error Codes
//
//	FILE001  file not found
//	FILE002  unsupported file type
//	FILE003  empty or invalid file
//	TREE001  home node not found
//	TREE002  section node not found
//	ROW001   duplicate item
//	ROW002   image extension not allowed
//	ROW003   image upload failed
//	ROW004   content item could not be saved
//	ROW005   too few columns
//	ROW006   missing item name
//	ROW007   row could not be tokenized
//	REQ001   no files provided
//	REQ002   invalid import request
//	UPL001   too many concurrent imports
//	UPL002   import cancelled
//	UPL003   import timed out
//	ERR000   anything else
package core
