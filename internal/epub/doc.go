// Package epub reads chapters out of EPUB containers. Chapters come
// back in spine order as plain text, with per-chapter titles pulled
// from the first heading of each document.
package epub
