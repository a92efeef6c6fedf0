package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/imaging"
	"github.com/kozaktomas/facecam/internal/overlay"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path> [path...]",
	Short: "Run images through the recognition service",
	Long: `Send image files to the recognition service test endpoint and print the
faces it finds in each one.

Paths may be files or folders. By default, only files directly in a folder
are used (non-recursive). Use -r to search recursively in subdirectories.
With --out, an annotated copy of every image is written to that folder.
Supported formats: jpg, jpeg, png, gif, bmp

Example:
  facecam upload /path/to/photos
  facecam upload -r --out annotated /path/to/photos
  facecam upload group.jpg portrait.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolP("recursive", "r", false, "Search for images recursively in subdirectories")
	uploadCmd.Flags().String("out", "", "Folder to write annotated copies to")
	uploadCmd.Flags().Int("workers", 4, "Number of concurrent uploads")
	uploadCmd.Flags().Int("max-size", constants.MaxImageSize, "Downscale images larger than this before upload (0 to send as-is)")
}

// uploadOptions controls how each image is sent and annotated.
type uploadOptions struct {
	renderer *overlay.Renderer // nil disables annotated copies
	quality  int
	maxSize  int
	outDir   string
}

// uploadResult is the outcome for one file.
type uploadResult struct {
	path   string
	faces  []recognizer.Face
	people []recognizer.DetectedPerson
	err    error
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	}
	return false
}

// collectImages expands folders into the image files they contain.
func collectImages(paths []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}
		if !info.IsDir() {
			filePaths = append(filePaths, path)
			continue
		}

		if recursive {
			err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					filePaths = append(filePaths, p)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", path, err)
			}
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImageFile(entry.Name()) {
				filePaths = append(filePaths, filepath.Join(path, entry.Name()))
			}
		}
	}
	return filePaths, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	recursive := mustGetBool(cmd, "recursive")
	outDir := mustGetString(cmd, "out")
	workers := mustGetInt(cmd, "workers")
	maxSize := mustGetInt(cmd, "max-size")
	if workers < 1 {
		workers = 1
	}

	cfg := config.Load()

	filePaths, err := collectImages(args, recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified paths.")
		return nil
	}
	fmt.Printf("Found %d image(s) to test\n", len(filePaths))

	client, err := newRecognizer(cfg)
	if err != nil {
		return err
	}

	opts := uploadOptions{quality: cfg.Capture.JPEGQuality, maxSize: maxSize, outDir: outDir}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0750); err != nil {
			return fmt.Errorf("could not create output folder: %w", err)
		}
		opts.renderer, err = overlay.New(cfg.Style)
		if err != nil {
			return fmt.Errorf("could not load overlay style: %w", err)
		}
	}
	fmt.Printf("Recognition service: %s\n\n", client.BaseURL())

	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Recognizing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	ctx := context.Background()
	results := make([]uploadResult, len(filePaths))
	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, workers)
	)
	for i, filePath := range filePaths {
		wg.Add(1)
		go func(i int, filePath string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = testImage(ctx, client, opts, filePath)
			bar.Add(1)
		}(i, filePath)
	}
	wg.Wait()
	fmt.Println()
	fmt.Println()

	return printUploadResults(results)
}

// testImage uploads one file and, when a renderer is set, writes an annotated
// copy into the output folder. Downscaled uploads are sent as JPEG and the
// annotations are drawn on the downscaled image the service saw.
func testImage(ctx context.Context, client *recognizer.Client, opts uploadOptions, filePath string) uploadResult {
	result := uploadResult{path: filePath}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.err = fmt.Errorf("could not read file: %w", err)
		return result
	}

	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	filename := filepath.Base(filePath)
	if opts.maxSize > 0 {
		data, err = imaging.ResizeImage(data, opts.maxSize)
		if err != nil {
			result.err = err
			return result
		}
		filename = base + ".jpg"
	}

	resp, err := client.UploadTest(ctx, filename, data)
	if err != nil {
		result.err = err
		return result
	}
	result.faces = resp.Faces
	result.people = resp.DetectedPeople

	if opts.renderer == nil {
		return result
	}
	// Face locations refer to the image the service processed; prefer its
	// echoed copy over the local file.
	if resp.ImageBase64 != "" {
		data, err = imaging.DecodeDataURL(resp.ImageBase64)
		if err != nil {
			result.err = fmt.Errorf("could not decode service image: %w", err)
			return result
		}
	}
	img, err := imaging.Decode(data)
	if err != nil {
		result.err = err
		return result
	}
	annotated := imaging.ToRGBA(img)
	opts.renderer.BurnFaces(annotated, resp.Faces)
	out, err := imaging.EncodeJPEG(annotated, opts.quality)
	if err != nil {
		result.err = err
		return result
	}
	if err := os.WriteFile(filepath.Join(opts.outDir, base+"_faces.jpg"), out, 0600); err != nil {
		result.err = fmt.Errorf("could not write annotated copy: %w", err)
	}
	return result
}

func printUploadResults(results []uploadResult) error {
	var failed, faces int
	seen := make(map[string]int)
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Printf("Failed: %s: %v\n", r.path, r.err)
			continue
		}
		faces += len(r.faces)
		names := make([]string, 0, len(r.faces))
		for _, f := range r.faces {
			names = append(names, f.Name)
		}
		for _, p := range r.people {
			if p.Info.FullName != "" {
				seen[p.Info.FullName]++
			}
		}
		if len(names) == 0 {
			fmt.Printf("%s: no faces\n", r.path)
			continue
		}
		fmt.Printf("%s: %d face(s): %s\n", r.path, len(r.faces), strings.Join(names, ", "))
	}

	fmt.Printf("\nTested %d image(s), %d face(s) found, %d failed\n", len(results)-failed, faces, failed)
	if len(seen) > 0 {
		people := make([]string, 0, len(seen))
		for name := range seen {
			people = append(people, name)
		}
		sort.Strings(people)
		fmt.Println("People identified:")
		for _, name := range people {
			fmt.Printf("  %-30s %d image(s)\n", name, seen[name])
		}
	}

	if failed == len(results) {
		return fmt.Errorf("no images were processed successfully")
	}
	return nil
}
