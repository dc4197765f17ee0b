// Package layoutxml formato XML de intercambio del layout: los elementos se anidan bajo su padre.
//
//	<WarehouseLayout xmlns="urn:layout-api:layout:1" warehouseId="..." name="...">
//	  <Element id="..." kind="zone" code="A" name="Zona A">
//	    <Geometry x="0" y="0" width="10" depth="4" height="0" rotation="0"/>
//	    <Element id="..." kind="rack" ...>...</Element>
//	  </Element>
//	</WarehouseLayout>
package layoutxml

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/ucarion/c14n"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Layout-api/internal/application/editor"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
)

// Namespace del documento de layout.
const Namespace = "urn:layout-api:layout:1"

const (
	tagRoot       = "WarehouseLayout"
	tagElement    = "Element"
	tagGeometry   = "Geometry"
	tagCapacity   = "Capacity"
	tagAttributes = "Attributes"
)

var _ editor.LayoutCodec = (*Codec)(nil)

// Codec implementa editor.LayoutCodec con etree; el checksum es SHA-256 de la forma canónica (C14N).
type Codec struct{}

// NewCodec construye el codec.
func NewCodec() *Codec { return &Codec{} }

// Encode escribe el layout. elements debe venir con los padres antes que los hijos.
func (c *Codec) Encode(warehouse *entity.Warehouse, elements []entity.LayoutElement) ([]byte, string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(tagRoot)
	root.CreateAttr("xmlns", Namespace)
	root.CreateAttr("warehouseId", warehouse.ID)
	root.CreateAttr("name", warehouse.Name)

	nodes := make(map[string]*etree.Element, len(elements))
	for _, el := range elements {
		parent := root
		if el.ParentID != "" {
			p, ok := nodes[el.ParentID]
			if !ok {
				return nil, "", fmt.Errorf("layoutxml: %s aparece antes que su padre %s", el.ID, el.ParentID)
			}
			parent = p
		}
		nodes[el.ID] = writeElement(parent, el)
	}
	doc.Indent(2)

	sum, err := checksum(root)
	if err != nil {
		return nil, "", err
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("layoutxml: serializar: %w", err)
	}
	return out, sum, nil
}

func writeElement(parent *etree.Element, el entity.LayoutElement) *etree.Element {
	node := parent.CreateElement(tagElement)
	node.CreateAttr("id", el.ID)
	node.CreateAttr("kind", string(el.Kind))
	if el.Code != "" {
		node.CreateAttr("code", el.Code)
	}
	node.CreateAttr("name", el.Name)

	g := node.CreateElement(tagGeometry)
	g.CreateAttr("x", el.Geometry.X.String())
	g.CreateAttr("y", el.Geometry.Y.String())
	g.CreateAttr("width", el.Geometry.Width.String())
	g.CreateAttr("depth", el.Geometry.Depth.String())
	g.CreateAttr("height", el.Geometry.Height.String())
	g.CreateAttr("rotation", el.Geometry.Rotation.String())

	if !el.Capacity.IsZero() {
		node.CreateElement(tagCapacity).SetText(el.Capacity.String())
	}
	if len(el.Attributes) > 0 {
		node.CreateElement(tagAttributes).SetText(string(el.Attributes))
	}
	return node
}

// Decode lee el documento (UTF-8 o ISO-8859-1) y devuelve los elementos con los padres primero.
func (c *Codec) Decode(data []byte) ([]entity.LayoutElement, string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, "", fmt.Errorf("layoutxml: parsear: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != tagRoot {
		return nil, "", fmt.Errorf("layoutxml: se esperaba <%s>", tagRoot)
	}

	var out []entity.LayoutElement
	var walk func(parentID string, node *etree.Element) error
	walk = func(parentID string, node *etree.Element) error {
		for _, child := range node.SelectElements(tagElement) {
			el, err := readElement(parentID, child)
			if err != nil {
				return err
			}
			out = append(out, el)
			if err := walk(el.ID, child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("", root); err != nil {
		return nil, "", err
	}

	sum, err := checksum(root)
	if err != nil {
		return nil, "", err
	}
	return out, sum, nil
}

func readElement(parentID string, node *etree.Element) (entity.LayoutElement, error) {
	el := entity.LayoutElement{
		ID:       strings.TrimSpace(node.SelectAttrValue("id", "")),
		Kind:     entity.ElementKind(node.SelectAttrValue("kind", "")),
		ParentID: parentID,
		Code:     node.SelectAttrValue("code", ""),
		Name:     node.SelectAttrValue("name", ""),
	}
	if el.ID == "" {
		return el, fmt.Errorf("layoutxml: <%s> sin id", tagElement)
	}
	if !el.Kind.Valid() {
		return el, fmt.Errorf("layoutxml: %s: kind %q inválido", el.ID, el.Kind)
	}

	if g := node.SelectElement(tagGeometry); g != nil {
		fields := []struct {
			attr string
			dst  *decimal.Decimal
		}{
			{"x", &el.Geometry.X},
			{"y", &el.Geometry.Y},
			{"width", &el.Geometry.Width},
			{"depth", &el.Geometry.Depth},
			{"height", &el.Geometry.Height},
			{"rotation", &el.Geometry.Rotation},
		}
		for _, f := range fields {
			v, err := parseDecimal(g.SelectAttrValue(f.attr, ""))
			if err != nil {
				return el, fmt.Errorf("layoutxml: %s: %s: %w", el.ID, f.attr, err)
			}
			*f.dst = v
		}
	}
	if capNode := node.SelectElement(tagCapacity); capNode != nil {
		v, err := parseDecimal(capNode.Text())
		if err != nil {
			return el, fmt.Errorf("layoutxml: %s: capacidad: %w", el.ID, err)
		}
		el.Capacity = v
	}
	if attrs := node.SelectElement(tagAttributes); attrs != nil {
		raw := strings.TrimSpace(attrs.Text())
		if raw != "" {
			if !json.Valid([]byte(raw)) {
				return el, fmt.Errorf("layoutxml: %s: atributos no son JSON válido", el.ID)
			}
			el.Attributes = json.RawMessage(raw)
		}
	}
	if el.HasNegativeMeasures() {
		return el, fmt.Errorf("layoutxml: %s: dimensiones y capacidad no pueden ser negativas", el.ID)
	}
	return el, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// checksum SHA-256 hex de la forma canónica del elemento raíz.
func checksum(root *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(root.Copy())
	raw, err := doc.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("layoutxml: serializar raíz: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("layoutxml: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(charset) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	}
	return input, nil
}
