// Package extract turns uploaded documents into plain text.
//
// Files are read through langchaingo document loaders: plain text and
// markdown through the text loader, PDF through the PDF loader (pages joined
// with a blank line) and HTML through the sanitizing HTML loader. Files of any
// other type are skipped with ErrUnsupportedFormat recorded as the reason,
// and extraction continues with the rest.
//
// URLs go through a Fetcher, the boundary behind which scraping of social or
// web content lives.
package extract
