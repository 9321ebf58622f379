// Package library pairs downloaded media with its artwork and maintains the
// on-disk directory layout.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// strayImageExts are intermediate artifacts the downloader may leave next to media
var strayImageExts = map[string]bool{".webp": true, ".jpg": true, ".jpeg": true, ".png": true}

// Scan lists media files in mediaDir whose extension is allowed and which have
// an art file with the same stem in artDir. Entries come back in directory
// iteration order. A missing mediaDir yields no entries.
func Scan(fsys afero.Fs, mediaDir, artDir string, allowedExts []string, category domain.Category) ([]domain.LibraryEntry, error) {
	infos, err := afero.ReadDir(fsys, mediaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", mediaDir, err)
	}

	allowed := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		allowed["."+strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}

	var entries []domain.LibraryEntry
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		ext := filepath.Ext(name)
		if !allowed[strings.ToLower(ext)] {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		art, ok := FindArt(fsys, artDir, stem)
		if !ok {
			continue
		}
		entries = append(entries, domain.LibraryEntry{
			Title:         stem,
			MediaPath:     filepath.Join(mediaDir, name),
			ThumbnailPath: art,
			Category:      category,
		})
	}
	return entries, nil
}

// FindArt returns the art file for stem in artDir, trying each known image extension
func FindArt(fsys afero.Fs, artDir, stem string) (string, bool) {
	for _, ext := range domain.ArtExtensions {
		candidate := filepath.Join(artDir, stem+"."+ext)
		if info, err := fsys.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// ScanLibrary scans both categories of the layout
func ScanLibrary(fsys afero.Fs, layout domain.Layout) (map[domain.Category][]domain.LibraryEntry, error) {
	result := make(map[domain.Category][]domain.LibraryEntry, len(domain.Categories))
	for _, category := range domain.Categories {
		kind := domain.KindVideo
		if category == domain.CategoryAudio {
			kind = domain.KindAudio
		}
		entries, err := Scan(fsys, layout.MediaDir(category), layout.ArtDir(category), kind.Formats(), category)
		if err != nil {
			return nil, err
		}
		result[category] = entries
	}
	return result, nil
}

// EnsureLayout creates every directory of the layout
func EnsureLayout(fsys afero.Fs, layout domain.Layout) error {
	for _, dir := range layout.Dirs() {
		if dir == "" {
			continue
		}
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanStrayImages deletes image files left inside the media directories and
// returns the removed paths.
func CleanStrayImages(fsys afero.Fs, layout domain.Layout) ([]string, error) {
	var removed []string
	for _, dir := range []string{layout.VideoDir, layout.MusicDir} {
		infos, err := afero.ReadDir(fsys, dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, info := range infos {
			if info.IsDir() || !strayImageExts[strings.ToLower(filepath.Ext(info.Name()))] {
				continue
			}
			path := filepath.Join(dir, info.Name())
			if err := fsys.Remove(path); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			removed = append(removed, path)
		}
	}
	return removed, nil
}
