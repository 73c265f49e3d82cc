package imaging

import (
	"bytes"
	"encoding/binary"
)

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
	tagOrient  = 0x0112
)

// ReadOrientation returns the EXIF orientation tag (1-8) of JPEG data, or 1
// when the data has no EXIF block or the tag is missing or invalid.
//
// Only the tag value is extracted; rotation itself is applied by Decode.
func ReadOrientation(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return 1
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return 1
		}
		marker := data[pos+1]
		if marker == markerSOS {
			return 1
		}
		size := int(binary.BigEndian.Uint16(data[pos+2:]))
		if size < 2 || pos+2+size > len(data) {
			return 1
		}
		if marker == markerAPP1 {
			if o := exifOrientation(data[pos+4 : pos+2+size]); o > 0 {
				return o
			}
		}
		pos += 2 + size
	}
	return 1
}

func exifOrientation(seg []byte) int {
	if len(seg) < 14 || !bytes.Equal(seg[:6], []byte("Exif\x00\x00")) {
		return 0
	}
	tiff := seg[6:]

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0
	}

	ifd := int(order.Uint32(tiff[4:8]))
	if ifd+2 > len(tiff) {
		return 0
	}
	n := int(order.Uint16(tiff[ifd:]))
	for i := 0; i < n; i++ {
		e := ifd + 2 + i*12
		if e+12 > len(tiff) {
			return 0
		}
		if order.Uint16(tiff[e:]) != tagOrient {
			continue
		}
		v := int(order.Uint16(tiff[e+8:]))
		if v < 1 || v > 8 {
			return 0
		}
		return v
	}
	return 0
}
