package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return paragraphText(r.Editable().GetContent())
}

// paragraphText walks word/document.xml and returns the text of each
// top-level body paragraph followed by a newline. Table cells, headers and
// text boxes are not body paragraphs and are left out.
func paragraphText(documentXML string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(documentXML))

	var (
		out    strings.Builder
		para   strings.Builder
		stack  []string
		inPara bool
		inText bool
	)

	parent := func() string {
		if len(stack) < 2 {
			return ""
		}
		return stack[len(stack)-2]
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			switch t.Name.Local {
			case "p":
				if parent() == "body" {
					inPara = true
					para.Reset()
				}
			case "t":
				inText = inPara
			case "tab":
				if inPara && parent() == "r" {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if inPara && parent() == "r" {
					para.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara && parent() == "body" {
					out.WriteString(para.String())
					out.WriteByte('\n')
					inPara = false
				}
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return out.String(), nil
}
