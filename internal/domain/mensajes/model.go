// Package mensajes manages the WhatsApp messaging screen: the contact
// list, the open conversation, message templates and the send command.
// Pushed "nuevo-mensaje" events append to the open conversation for
// low-latency feedback; the authoritative state always comes from the
// next contact/conversation reload.
package mensajes

import (
	"github.com/adalberto1996/citas-hsc/pkg/listview"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Message directions as the API reports them.
const (
	TipoEntrada = "ENTRADA"
	TipoSalida  = "SALIDA"
)

// Message is one conversation entry.
type Message struct {
	ID             int
	Telefono       string
	Texto          string
	Tipo           string
	Fecha          string
	Leido          bool
	NombreContacto string
}

// MapMessages maps raw conversation records, length and order
// preserving.
func MapMessages(recs []map[string]any) []Message {
	out := make([]Message, len(recs))
	for i, rec := range recs {
		out[i] = MapMessage(rec)
	}
	return out
}

// MapMessage maps one raw record, as arriving in a live event payload
// or a conversation batch.
func MapMessage(rec map[string]any) Message {
	return Message{
		ID:             resolve.IntOr(rec, []string{"id_mensaje", "id"}, 0),
		Telefono:       resolve.First(rec, []string{"telefono"}, ""),
		Texto:          resolve.First(rec, []string{"mensaje", "texto", "body"}, ""),
		Tipo:           resolve.First(rec, []string{"tipo"}, TipoEntrada),
		Fecha:          resolve.First(rec, []string{"fecha", "created_at"}, ""),
		Leido:          resolve.BoolOr(rec, []string{"leido"}, false),
		NombreContacto: resolve.First(rec, []string{"nombre_contacto"}, ""),
	}
}

// Contact is one row of the contact list.
type Contact struct {
	Telefono       string
	NombreCompleto string
	UltimoMensaje  string
	UltimaFecha    string
	SinLeer        int
}

// MapContacts maps raw contact records, length and order preserving.
func MapContacts(recs []map[string]any) []Contact {
	out := make([]Contact, len(recs))
	for i, rec := range recs {
		out[i] = Contact{
			Telefono:       resolve.First(rec, []string{"telefono"}, ""),
			NombreCompleto: resolve.First(rec, []string{"nombre_completo", "nombre_contacto", "nombre"}, ""),
			UltimoMensaje:  resolve.First(rec, []string{"ultimo_mensaje"}, ""),
			UltimaFecha:    resolve.First(rec, []string{"ultima_fecha"}, ""),
			SinLeer:        resolve.IntOr(rec, []string{"mensajes_sin_leer"}, 0),
		}
	}
	return out
}

// Matches is the contact search predicate.
func (c Contact) Matches(query string) bool {
	return listview.MatchQuery(query, c.Telefono, c.NombreCompleto)
}

// Template is one reusable message text.
type Template struct {
	ID        int
	Nombre    string
	Mensaje   string
	Categoria string
}

// MapTemplates maps raw template records, length and order preserving.
func MapTemplates(recs []map[string]any) []Template {
	out := make([]Template, len(recs))
	for i, rec := range recs {
		out[i] = Template{
			ID:        resolve.IntOr(rec, []string{"id_plantilla", "id"}, 0),
			Nombre:    resolve.First(rec, []string{"nombre"}, resolve.Fallback),
			Mensaje:   resolve.First(rec, []string{"mensaje", "texto"}, ""),
			Categoria: resolve.First(rec, []string{"categoria"}, "general"),
		}
	}
	return out
}

// ByCategory groups templates preserving first-seen category order.
func ByCategory(ts []Template) ([]string, map[string][]Template) {
	var order []string
	groups := make(map[string][]Template)
	for _, t := range ts {
		if _, ok := groups[t.Categoria]; !ok {
			order = append(order, t.Categoria)
		}
		groups[t.Categoria] = append(groups[t.Categoria], t)
	}
	return order, groups
}
