package modulos

import (
	"tablero/internal/admin"
	"tablero/internal/repo"
)

// RegisterViews публикует все сущности каталога на движке.
func RegisterViews(e *admin.Engine) error {
	views := []*admin.View{
		{
			Proto:        AgrupacionModulo{},
			Title:        "Agrupaciones de Módulos",
			ListDisplay:  admin.Cols("nombre", "url", "icono", "orden"),
			SearchFields: []string{"nombre", "url"},
			Ordering:     []string{"orden", "nombre"},
			Export:       admin.Cols("nombre", "url", "orden"),
			Inlines: []admin.Inline{{
				Proto:     Modulo{},
				FK:        "agrupacion",
				Prefix:    "modulos",
				Fields:    []string{"nombre", "url", "icon", "orden", "activo"},
				Extra:     1,
				CanDelete: true,
			}},
		},
		{
			Proto:        Modulo{},
			Title:        "Módulos",
			ListDisplay:  admin.Cols("nombre", "url", "icon", "orden", "activo", "agrupacion__nombre"),
			SearchFields: []string{"nombre", "url"},
			Filters:      []admin.Filter{{Path: "activo"}, {Path: "agrupacion"}},
			Ordering:     []string{"orden"},
			Export:       admin.Cols("nombre", "url", "orden", "activo"),
		},
		{
			Proto:        TipoNotificacion{},
			Title:        "Tipos Notificaciones",
			ListDisplay:  admin.Cols("tipo", "titulo"),
			SearchFields: []string{"tipo", "titulo"},
			Ordering:     []string{"tipo"},
			// тип нельзя удалить, пока на него смотрят уведомления:
			// cascade снёс бы их молча
			DeleteGuard: func(tx repo.Repository, obj any) error {
				t := obj.(*TipoNotificacion)
				kids, err := tx.ListChildren("notificacion_usuario", "tipo", t.ID)
				if err != nil {
					return err
				}
				if len(kids) > 0 {
					return &admin.GuardError{
						Message: "No se puede eliminar: el tipo tiene notificaciones asociadas"}
				}
				return nil
			},
		},
		{
			Proto:       NotificacionUsuario{},
			Title:       "Notificaciones Usuarios",
			ListDisplay: admin.Cols("tipo__tipo", "usuario_notificado__correo", "mensaje", "visto"),
			SearchFields: []string{
				"mensaje", "usuario_notificado__correo", "usuario_notificado__apellido",
			},
			Filters:  []admin.Filter{{Path: "visto"}, {Path: "tipo"}},
			PageSize: 50,
		},
		{
			Proto: Usuario{},
			Title: "Usuarios",
			ListDisplay: append(
				admin.Cols("apellido", "nombre", "correo", "activo"),
				admin.Column{Label: "Rol", Path: "insignia"},
			),
			SearchFields: []string{"nombre", "apellido", "correo"},
			Filters:      []admin.Filter{{Path: "activo"}, {Path: "rol"}},
			Ordering:     []string{"apellido", "nombre"},
			Export:       admin.Cols("apellido", "nombre", "correo", "rol", "activo"),
		},
	}

	for _, v := range views {
		if err := e.Register(v); err != nil {
			return err
		}
	}
	return nil
}
