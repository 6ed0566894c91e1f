// Package textutil turns media titles and server identifiers into names that
// are safe to use as file and directory names on any filesystem the backup
// tree may live on.
package textutil
