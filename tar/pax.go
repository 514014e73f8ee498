// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tar

import (
	"sort"
	"strconv"
	"strings"
)

// parsePAXRecord parses the first "<len> <key>=<value>\n" record off the
// front of s, returning the key, value, and the unconsumed remainder.
func parsePAXRecord(s string) (k, v, rest string, err error) {
	sp := strings.IndexByte(s, ' ')
	if sp <= 0 {
		return "", "", s, ErrHeader
	}
	n, perr := strconv.ParseInt(s[:sp], 10, 64)
	if perr != nil || n < 5 || int64(len(s)) < n {
		return "", "", s, ErrHeader
	}

	record, remainder := s[:n], s[n:]
	record = record[sp+1:]
	if !strings.HasSuffix(record, "\n") {
		return "", "", s, ErrHeader
	}
	record = record[:len(record)-1]

	eq := strings.IndexByte(record, '=')
	if eq < 0 {
		return "", "", s, ErrHeader
	}
	return record[:eq], record[eq+1:], remainder, nil
}

// parsePAX parses a full PAX extended-header body into a key/value map. It
// also folds the legacy GNU sparse 0.0 offset/numbytes record pairs into a
// single "GNU.sparse.map" record, matching 0.1's representation.
func parsePAX(buf []byte) (map[string]string, error) {
	sbuf := string(buf)

	var sparseMap []string
	paxHdrs := make(map[string]string)
	for len(sbuf) > 0 {
		k, v, residual, err := parsePAXRecord(sbuf)
		if err != nil {
			return nil, ErrHeader
		}
		sbuf = residual

		switch k {
		case paxGNUSparseOffset, paxGNUSparseNumBytes:
			if (len(sparseMap)%2 == 0 && k != paxGNUSparseOffset) ||
				(len(sparseMap)%2 == 1 && k != paxGNUSparseNumBytes) ||
				strings.Contains(v, ",") {
				return nil, ErrHeader
			}
			sparseMap = append(sparseMap, v)
		default:
			paxHdrs[k] = v
		}
	}
	if len(sparseMap) > 0 {
		paxHdrs[paxGNUSparseMap] = strings.Join(sparseMap, ",")
	}
	return paxHdrs, nil
}

// mergePAX overlays paxHdrs onto hdr, parsing each recognized key into its
// typed field. Unrecognized keys (and the recognized ones) are retained
// verbatim in hdr.PAXRecords.
func mergePAX(hdr *Header, paxHdrs map[string]string) error {
	var err error
	for k, v := range paxHdrs {
		if v == "" {
			continue // keep whatever the USTAR/GNU value already was
		}
		var id64 int64
		switch k {
		case paxPath:
			hdr.Name = v
		case paxLinkpath:
			hdr.Linkname = v
		case paxUname:
			hdr.Uname = v
		case paxGname:
			hdr.Gname = v
		case paxUid:
			id64, err = strconv.ParseInt(v, 10, 64)
			hdr.Uid = int(id64)
		case paxGid:
			id64, err = strconv.ParseInt(v, 10, 64)
			hdr.Gid = int(id64)
		case paxAtime:
			hdr.AccessTime, err = parsePAXTime(v)
		case paxMtime:
			hdr.ModTime, err = parsePAXTime(v)
		case paxCtime:
			hdr.ChangeTime, err = parsePAXTime(v)
		case paxSize:
			hdr.Size, err = strconv.ParseInt(v, 10, 64)
		default:
			if strings.HasPrefix(k, paxSchilyXattr) {
				if hdr.Xattrs == nil {
					hdr.Xattrs = make(map[string]string)
				}
				hdr.Xattrs[k[len(paxSchilyXattr):]] = v
			}
		}
		if err != nil {
			return ErrHeader
		}
	}
	hdr.PAXRecords = paxHdrs
	return nil
}

// formatPAXRecord renders one "<len> <key>=<value>\n" record, where len is
// the record's own total byte length, digits included. Appending the
// length's own digit count can occasionally carry into one more digit, so
// the computation is redone once after an initial estimate.
func formatPAXRecord(k, v string) string {
	const padding = 3 // ' ' + '=' + '\n'
	size := len(k) + len(v) + padding
	size += len(strconv.Itoa(size))
	record := strconv.Itoa(size) + " " + k + "=" + v + "\n"
	if len(record) != size {
		size = len(record)
		record = strconv.Itoa(size) + " " + k + "=" + v + "\n"
	}
	return record
}

// buildPAXRecords computes the PAX records needed to faithfully encode hdr,
// given that format alone (without PAX) cannot: anything whose USTAR-field
// encoding would be lossy or oversized gets a PAX record. The result is an
// unordered map; encodePAXRecords sorts it when rendering.
func buildPAXRecords(hdr *Header) map[string]string {
	records := map[string]string{}
	for k, v := range hdr.PAXRecords {
		records[k] = v
	}
	for k, v := range hdr.Xattrs {
		records[paxSchilyXattr+k] = v
	}

	needsPAX := func(cond bool, key, val string) {
		if cond {
			records[key] = val
		}
	}
	needsPAX(!nameFitsUSTAR(hdr.Name), paxPath, hdr.Name)
	needsPAX(!isASCII(hdr.Linkname) || len(hdr.Linkname) > nameSize, paxLinkpath, hdr.Linkname)
	needsPAX(!isASCII(hdr.Uname) || len(hdr.Uname) > 32, paxUname, hdr.Uname)
	needsPAX(!isASCII(hdr.Gname) || len(hdr.Gname) > 32, paxGname, hdr.Gname)
	needsPAX(!fitsOctalField(hdr.Size, 12), paxSize, strconv.FormatInt(hdr.Size, 10))
	needsPAX(!fitsOctalField(int64(hdr.Uid), 8), paxUid, strconv.Itoa(hdr.Uid))
	needsPAX(!fitsOctalField(int64(hdr.Gid), 8), paxGid, strconv.Itoa(hdr.Gid))
	needsPAX(hdr.ModTime.Nanosecond() != 0 || hdr.ModTime.Unix() < 0, paxMtime, formatPAXTime(hdr.ModTime))
	needsPAX(!hdr.AccessTime.IsZero(), paxAtime, formatPAXTime(hdr.AccessTime))
	needsPAX(!hdr.ChangeTime.IsZero(), paxCtime, formatPAXTime(hdr.ChangeTime))

	return records
}

// encodePAXRecords renders records in a deterministic (sorted-key) order,
// for reproducible archive output.
func encodePAXRecords(records map[string]string) []byte {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf strings.Builder
	for _, k := range keys {
		buf.WriteString(formatPAXRecord(k, records[k]))
	}
	return []byte(buf.String())
}
