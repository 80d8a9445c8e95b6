// package formatter renders catalog entities as CSV, Markdown and plain text, and writes album exports to disk
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
	"github.com/desertthunder/qcat/internal/tasks"
)

// Formats accepted by [WriteAlbumExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

func albumTracks(album *models.Album) []models.Track {
	if album.Tracks == nil {
		return nil
	}
	return album.Tracks.Items
}

func releaseYear(album models.Album) string {
	if len(album.ReleaseDateOriginal) >= 4 {
		return album.ReleaseDateOriginal[:4]
	}
	if album.ReleasedAt > 0 {
		return strconv.Itoa(time.Unix(album.ReleasedAt, 0).UTC().Year())
	}
	return ""
}

func explicitMark(explicit bool) string {
	if explicit {
		return " [E]"
	}
	return ""
}

// AlbumToCSV converts an album's track listing to CSV with columns: Disc, Track, ID, Title, Artist, Duration, ISRC, Explicit
func AlbumToCSV(album *models.Album) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Disc", "Track", "ID", "Title", "Artist", "Duration", "ISRC", "Explicit"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range albumTracks(album) {
		record := []string{
			strconv.Itoa(track.MediaNumber),
			strconv.Itoa(track.TrackNumber),
			strconv.FormatInt(track.ID, 10),
			track.DisplayTitle(),
			track.ArtistNames(", "),
			strconv.Itoa(track.Duration),
			track.ISRC,
			strconv.FormatBool(track.ParentalWarning),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// AlbumToMarkdown converts an album to Markdown with an optional cover image
func AlbumToMarkdown(album *models.Album, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", album.DisplayTitle())

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Artist**: %s\n", album.ArtistNames(", "))
	if year := releaseYear(*album); year != "" {
		fmt.Fprintf(&buf, "**Released**: %s\n", year)
	}
	if album.Label.Name != "" {
		fmt.Fprintf(&buf, "**Label**: %s\n", album.Label.Name)
	}
	if album.Genre.Name != "" {
		fmt.Fprintf(&buf, "**Genre**: %s\n", album.Genre.Name)
	}
	if album.MaximumBitDepth > 0 {
		fmt.Fprintf(&buf, "**Quality**: %d-bit / %gkHz\n", album.MaximumBitDepth, album.MaximumSamplingRate)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", album.TracksCount)

	buf.WriteString("## Tracks\n\n")
	for _, track := range albumTracks(album) {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]%s\n",
			track.TrackNumber, track.ArtistNames(", "), track.DisplayTitle(),
			shared.FormatDuration(track.Duration), explicitMark(track.ParentalWarning))
	}

	return buf.Bytes(), nil
}

// AlbumToText converts an album to plain text
func AlbumToText(album *models.Album) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Album: %s\n", album.DisplayTitle())
	fmt.Fprintf(&buf, "Artist: %s\n", album.ArtistNames(", "))
	if year := releaseYear(*album); year != "" {
		fmt.Fprintf(&buf, "Released: %s\n", year)
	}
	fmt.Fprintf(&buf, "Tracks: %d (%s)\n\n", album.TracksCount, shared.FormatDuration(album.Duration))

	for _, track := range albumTracks(album) {
		fmt.Fprintf(&buf, "%2d. %s [%s]%s\n",
			track.TrackNumber, track.DisplayTitle(), shared.FormatDuration(track.Duration), explicitMark(track.ParentalWarning))
	}

	return buf.Bytes(), nil
}

// SearchToText renders the three result pages of a search
func SearchToText(results *models.SearchResults) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Query: %s\n", results.Query)
	if results.SwitchTo != models.HintNone {
		fmt.Fprintf(&buf, "Permalink: %s\n", results.SwitchTo)
	}

	fmt.Fprintf(&buf, "\nAlbums (%d of %d)\n", len(results.Albums.Items), results.Albums.Total)
	for _, album := range results.Albums.Items {
		fmt.Fprintf(&buf, "  %-16s %s - %s%s\n", album.ID, album.ArtistNames(", "), album.DisplayTitle(), explicitMark(album.ParentalWarning))
	}

	fmt.Fprintf(&buf, "\nTracks (%d of %d)\n", len(results.Tracks.Items), results.Tracks.Total)
	for _, track := range results.Tracks.Items {
		fmt.Fprintf(&buf, "  %-16d %s - %s (%s) [%s]%s\n",
			track.ID, track.ArtistNames(", "), track.DisplayTitle(), track.Album.Title,
			shared.FormatDuration(track.Duration), explicitMark(track.ParentalWarning))
	}

	fmt.Fprintf(&buf, "\nArtists (%d of %d)\n", len(results.Artists.Items), results.Artists.Total)
	for _, artist := range results.Artists.Items {
		fmt.Fprintf(&buf, "  %-16d %s (%d albums)\n", artist.ID, artist.Name, artist.AlbumsCount)
	}

	return buf.Bytes()
}

// ReleasesToText renders one page of an artist's releases
func ReleasesToText(page *models.Page[models.Album]) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Releases %d-%d of %d\n", page.Offset+1, page.Offset+len(page.Items), page.Total)
	for _, album := range page.Items {
		year := releaseYear(album)
		if year == "" {
			year = "----"
		}
		fmt.Fprintf(&buf, "  %s  %-16s %s%s\n", year, album.ID, album.DisplayTitle(), explicitMark(album.ParentalWarning))
	}
	if page.HasMore {
		fmt.Fprintf(&buf, "  ... more from offset %d\n", page.Offset+len(page.Items))
	}

	return buf.Bytes()
}

// ArtistToText renders an artist profile with a release count per group
func ArtistToText(profile *models.ArtistProfile) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Artist: %s (%d)\n", profile.Name, profile.ID)
	if profile.Category != "" {
		fmt.Fprintf(&buf, "Category: %s\n", profile.Category)
	}

	for _, rt := range models.ReleaseTypes() {
		group, ok := profile.Releases[rt]
		if !ok {
			continue
		}
		more := ""
		if group.HasMore {
			more = "+"
		}
		fmt.Fprintf(&buf, "\n%s (%d%s)\n", rt, len(group.Items), more)
		for _, album := range group.Items {
			fmt.Fprintf(&buf, "  %-16s %s\n", album.ID, album.DisplayTitle())
		}
	}

	if len(profile.TopTracks) > 0 {
		buf.WriteString("\nTop tracks\n")
		for i, track := range profile.TopTracks {
			fmt.Fprintf(&buf, "  %d. %s (%s)\n", i+1, track.DisplayTitle(), track.Album.Title)
		}
	}

	return buf.Bytes()
}

// StreamsToText renders the outcome of an album stream resolution
func StreamsToText(result *tasks.AlbumStreamResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s: %d resolved, %d failed\n", result.Album.DisplayTitle(), result.ResolvedCount, result.FailedCount)
	for _, res := range result.Results {
		if res.Error != nil {
			fmt.Fprintf(&buf, "  ✗ %d %s: %v\n", res.Track.ID, res.Track.DisplayTitle(), res.Error)
			continue
		}
		region := res.Region
		if region == "" {
			region = "default"
		}
		fmt.Fprintf(&buf, "  ✓ %d %s [%s] %s\n", res.Track.ID, res.Track.DisplayTitle(), region, res.Stream.URL)
	}

	return buf.Bytes()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of album metadata (without tracks)
func ToMetadataJSON(album models.Album) ([]byte, error) {
	album.Tracks = nil
	return shared.MarshalJSON(album, true)
}

// CSVExportResult contains the paths of files created by WriteAlbumCSV
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteAlbumCSV writes {base}_tracks.csv and {base}_metadata.json. The base defaults to the album ID.
func WriteAlbumCSV(album *models.Album, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = album.ID
	}

	csvData, err := AlbumToCSV(album)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(*album)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteAlbumMarkdown
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteAlbumMarkdown exports an album to {dir}/README.md and optionally {dir}/cover.jpg.
//
// Directory name defaults to the album ID. A failed cover download only produces a warning.
func WriteAlbumMarkdown(album *models.Album, outputDir, imageURL string, warn io.Writer) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = album.ID
	}
	if warn == nil {
		warn = io.Discard
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(warn, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(warn, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := AlbumToMarkdown(album, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteAlbumText exports an album to plain text. Defaults to {album.ID}_tracks.txt.
func WriteAlbumText(album *models.Album, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", album.ID)
	}

	textData, err := AlbumToText(album)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteAlbumExport writes album into dir using format and returns the created files.
//
// Markdown exports fetch the full resolution cover when withCover is set.
func WriteAlbumExport(album *models.Album, format, dir string, withCover bool, warn io.Writer) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := filepath.Join(dir, album.ID)

	switch strings.ToLower(format) {
	case FormatCSV:
		res, err := WriteAlbumCSV(album, base)
		if err != nil {
			return nil, err
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case FormatMarkdown, "md":
		imageURL := ""
		if withCover {
			imageURL = album.FullResImageURL()
		}
		res, err := WriteAlbumMarkdown(album, base, imageURL, warn)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText, "text":
		path, err := WriteAlbumText(album, base+"_tracks.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON, "":
		data, err := shared.MarshalJSON(album, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		path := base + ".json"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}
