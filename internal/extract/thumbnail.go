package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"
)

const thumbnailWidth uint = 200
const thumbnailHeight uint = 300

// PageThumbnail downscales a rendered page, encodes it as a JPEG and returns
// it as a Base64 data URI for the dashboard job list.
func PageThumbnail(img image.Image) (string, error) {
	imgHeight := img.Bounds().Dy()
	imgWidth := img.Bounds().Dx()
	if imgHeight == 0 || imgWidth == 0 {
		return "", fmt.Errorf("page image has empty bounds")
	}

	var resizedImg image.Image
	if imgHeight > imgWidth {
		resizedImg = resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)
	} else {
		resizedImg = resize.Resize(0, thumbnailHeight, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	// Quality 75 is a good balance for a preview.
	if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 75}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	base64Str := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("data:image/jpeg;base64,%s", base64Str), nil
}
