// Package media stores uploaded post images in external object storage.
package media
