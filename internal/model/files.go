package model

// UpsertFile returns the file list with the named file replaced in place, or
// appended when no file with that name exists. Order of existing entries is
// preserved.
func UpsertFile(files []File, name, content string) []File {
	for i, f := range files {
		if f.Name == name {
			out := make([]File, len(files))
			copy(out, files)
			out[i].Content = content
			return out
		}
	}
	out := make([]File, len(files), len(files)+1)
	copy(out, files)
	return append(out, File{Name: name, Content: content})
}

// RemoveFile returns the file list without the named file. The second return
// reports whether the file was present.
func RemoveFile(files []File, name string) ([]File, bool) {
	out := make([]File, 0, len(files))
	found := false
	for _, f := range files {
		if f.Name == name {
			found = true
			continue
		}
		out = append(out, f)
	}
	return out, found
}

// FindFile returns the file with the given name, if present.
func FindFile(files []File, name string) (File, bool) {
	for _, f := range files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}
