// modulos: каталог модулей системы и уведомления — конкретные сущности
// поверх движка администрирования.
package modulos

import (
	"fmt"
	"html"
)

// AgrupacionModulo — группа модулей в меню. Модули внутри редактируются
// inline на форме группы.
type AgrupacionModulo struct {
	ID      string
	URL     string    `admin:"label:URL,required,unique"`
	Nombre  string    `admin:"label:Nombre,required"`
	Icono   string    `admin:"label:Ícono"`
	Orden   int       `admin:"label:Orden de Prioridad"`
	Modulos []*Modulo `admin:"fk:agrupacion"`
}

func (a *AgrupacionModulo) String() string {
	return fmt.Sprintf("%s %d", a.Nombre, a.Orden)
}

type Modulo struct {
	ID         string
	URL        string            `admin:"label:URL,required"`
	Nombre     string            `admin:"label:Nombre,required"`
	Icon       string            `admin:"label:Icono"`
	Orden      int               `admin:"label:Orden"`
	Activo     bool              `admin:"label:Activo"`
	Agrupacion *AgrupacionModulo `admin:"label:Agrupación,on_delete:set_null"`
}

func (m *Modulo) String() string { return m.Nombre }

type TipoNotificacion struct {
	ID           string
	Tipo         string `admin:"label:Tipo,required,unique"`
	Titulo       string `admin:"label:Título,required"`
	MensajeFinal string `admin:"label:Mensaje Final,kind:text"`
}

func (t *TipoNotificacion) String() string { return t.Tipo }

type NotificacionUsuario struct {
	ID                string
	UsuarioNotifica   *Usuario          `admin:"label:Notifica,required,on_delete:cascade"`
	UsuarioNotificado *Usuario          `admin:"label:Notificado,required,on_delete:cascade"`
	Tipo              *TipoNotificacion `admin:"label:Tipo,required,on_delete:cascade"`
	URL               string            `admin:"label:URL"`
	Mensaje           string            `admin:"label:Mensaje,kind:text"`
	Visto             bool              `admin:"label:Visto"`
}

func (n *NotificacionUsuario) String() string { return n.Mensaje }

type Usuario struct {
	ID       string
	Nombre   string `admin:"label:Nombre,required"`
	Apellido string `admin:"label:Apellido,required"`
	Correo   string `admin:"label:Correo Electrónico,required,unique"`
	Rol      string `admin:"label:Rol,choices:roles"`
	Activo   bool   `admin:"label:Activo"`
}

func (u *Usuario) String() string { return u.Nombre + " " + u.Apellido }

// Insignia — бейдж роли для колонки листинга.
func (u *Usuario) Insignia() string {
	cls := "bg-secondary"
	switch u.Rol {
	case "admin":
		cls = "bg-danger"
	case "pro":
		cls = "bg-primary"
	}
	return `<span class="badge ` + cls + `">` + html.EscapeString(u.Rol) + `</span>`
}

// All — прототипы для регистрации в реестре.
func All() []any {
	return []any{
		AgrupacionModulo{}, Modulo{}, TipoNotificacion{},
		NotificacionUsuario{}, Usuario{},
	}
}
