// Package render turns flattened pivot rows into something a person can look
// at: a Table model, a standalone HTML document, an aligned text table, and
// surfaces that rasterize the HTML for PDF export.
package render
