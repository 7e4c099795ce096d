// Package naming expands file name templates for batch items.
//
// A template is a slash-separated relative path made of literal text and
// placeholders in braces:
//
//	{title}        item title
//	{author}       channel or uploader
//	{id}           item identifier
//	{num}          zero-padded position in the batch
//	{upload_date}  YYYY-MM-DD, empty when unknown
//	{ext}          container extension
//
// When a template has no {ext}, the extension is appended. Expansion is pure;
// nothing in this package touches the file system.
package naming
