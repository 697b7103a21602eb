package dfxml

import (
	"encoding/xml"
	"io"
)

// Report is the content of a DFXML report written by DFXMLWriter.
type Report struct {
	Source      Source
	FileObjects []FileObject
	Summary     *Summary // nil when the report has no summary
}

// ReadReport decodes the source, the file objects and the summary of a
// report. Unknown elements are skipped.
func ReadReport(r io.Reader) (*Report, error) {
	dec := xml.NewDecoder(r)
	rep := &Report{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return rep, nil
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "source":
			err = dec.DecodeElement(&rep.Source, &start)
		case "fileobject":
			var fo FileObject
			if err = dec.DecodeElement(&fo, &start); err == nil {
				rep.FileObjects = append(rep.FileObjects, fo)
			}
		case "disk_summary":
			var s Summary
			if err = dec.DecodeElement(&s, &start); err == nil {
				rep.Summary = &s
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// ReadFileObjects returns the file objects of a report.
func ReadFileObjects(r io.Reader) ([]FileObject, error) {
	rep, err := ReadReport(r)
	if err != nil {
		return nil, err
	}
	return rep.FileObjects, nil
}
