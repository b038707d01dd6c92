// SPDX-License-Identifier: Apache-2.0

package sqlgen

import (
	"bytes"
	"text/template"
)

// Trigger bodies are built from templates. Postgres triggers call a
// PL/pgSQL function per verb; mysql accepts the body inline.

const pgInsertFunction = `CREATE OR REPLACE FUNCTION insert_{{ .DestTable }}() RETURNS TRIGGER AS
$BODY$
BEGIN
    INSERT INTO {{ .DestTable }}({{ .Columns }})
    VALUES({{ .Values }});
    RETURN NEW;
END;
$BODY$
language plpgsql;`

const pgUpdateFunction = `CREATE OR REPLACE FUNCTION update_{{ .DestTable }}() RETURNS TRIGGER AS
$BODY$
BEGIN
    UPDATE {{ .DestTable }} SET {{ .Assignments }}
    WHERE {{ .PKColumn }}=NEW.{{ .PKColumn }};
    RETURN NEW;
END;
$BODY$
language plpgsql;`

const pgDeleteFunction = `CREATE OR REPLACE FUNCTION delete_{{ .DestTable }}() RETURNS TRIGGER AS
$BODY$
BEGIN
    DELETE FROM {{ .DestTable }}
    WHERE {{ .DestTable }}.{{ .PKColumn }}=OLD.{{ .PKColumn }};
    RETURN NEW;
END;
$BODY$
language plpgsql;`

const pgTrigger = `CREATE TRIGGER {{ .Name }}
AFTER {{ .Event }} ON {{ .SourceTable }}
FOR EACH ROW
EXECUTE PROCEDURE {{ .Function }}();`

const myInsertTrigger = `CREATE TRIGGER {{ .Name }}
AFTER INSERT ON {{ .SourceTable }}
FOR EACH ROW
INSERT INTO {{ .DestTable }} ({{ .Columns }}) VALUES ({{ .Values }})`

const myUpdateTrigger = `CREATE TRIGGER {{ .Name }}
AFTER UPDATE ON {{ .SourceTable }}
FOR EACH ROW
UPDATE {{ .DestTable }} SET {{ .Assignments }}
WHERE ` + "`{{ .PKColumn }}`=`NEW`.`{{ .PKColumn }}`" + `;`

const myDeleteTrigger = `CREATE TRIGGER {{ .Name }}
AFTER DELETE ON {{ .SourceTable }}
FOR EACH ROW
DELETE IGNORE FROM {{ .DestTable }}
WHERE {{ .DestTable }}.{{ .PKColumn }} = OLD.{{ .PKColumn }};`

type triggerData struct {
	Name        string
	Event       string
	Function    string
	SourceTable string
	DestTable   string
	PKColumn    string
	Columns     string
	Values      string
	Assignments string
}

func renderTemplate(name, content string, data triggerData) string {
	tmpl := template.Must(template.New(name).Parse(content))

	buf := bytes.Buffer{}
	if err := tmpl.Execute(&buf, data); err != nil {
		// Templates are package constants; an execution failure is a
		// programming error, not an input error.
		panic(err)
	}
	return buf.String()
}

// PGShowCreateTableFunction installs show_create_table(varchar), which
// synthesises a CREATE statement from pg_catalog since postgres has no
// native SHOW CREATE TABLE. The generated statement carries the {}
// placeholder in place of the table name.
// From http://stackoverflow.com/questions/2593803
const PGShowCreateTableFunction = `CREATE OR REPLACE FUNCTION show_create_table(p_table_name varchar)
  RETURNS text AS
$BODY$
DECLARE
    v_table_ddl   text;
    column_record record;
BEGIN
    FOR column_record IN
        SELECT
            b.nspname as schema_name,
            b.relname as table_name,
            a.attname as column_name,
            pg_catalog.format_type(a.atttypid, a.atttypmod) as column_type,
            CASE WHEN
                (SELECT substring(pg_catalog.pg_get_expr(d.adbin, d.adrelid) for 128)
                 FROM pg_catalog.pg_attrdef d
                 WHERE d.adrelid = a.attrelid AND d.adnum = a.attnum AND a.atthasdef) IS NOT NULL THEN
                'DEFAULT '|| (SELECT substring(pg_catalog.pg_get_expr(d.adbin, d.adrelid) for 128)
                              FROM pg_catalog.pg_attrdef d
                              WHERE d.adrelid = a.attrelid AND d.adnum = a.attnum AND a.atthasdef)
            ELSE
                ''
            END as column_default_value,
            CASE WHEN a.attnotnull = true THEN
                'NOT NULL'
            ELSE
                'NULL'
            END as column_not_null,
            a.attnum as attnum,
            e.max_attnum as max_attnum
        FROM
            pg_catalog.pg_attribute a
            INNER JOIN
             (SELECT c.oid,
                n.nspname,
                c.relname
              FROM pg_catalog.pg_class c
                   LEFT JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
              WHERE c.relname ~ ('^('||p_table_name||')$')
                AND pg_catalog.pg_table_is_visible(c.oid)
              ORDER BY 2, 3) b
            ON a.attrelid = b.oid
            INNER JOIN
             (SELECT
                  a.attrelid,
                  max(a.attnum) as max_attnum
              FROM pg_catalog.pg_attribute a
              WHERE a.attnum > 0
                AND NOT a.attisdropped
              GROUP BY a.attrelid) e
            ON a.attrelid=e.attrelid
        WHERE a.attnum > 0
          AND NOT a.attisdropped
        ORDER BY a.attnum
    LOOP
        IF column_record.attnum = 1 THEN
            v_table_ddl:='CREATE TABLE {} (';
        ELSE
            v_table_ddl:=v_table_ddl||',';
        END IF;

        IF column_record.attnum <= column_record.max_attnum THEN
            v_table_ddl:=v_table_ddl||chr(10)||
                     '    '||column_record.column_name||' '||column_record.column_type||' '||column_record.column_default_value||' '||column_record.column_not_null;
        END IF;
    END LOOP;

    v_table_ddl:=v_table_ddl||');';
    RETURN v_table_ddl;
END;
$BODY$
  LANGUAGE 'plpgsql' COST 100.0 SECURITY INVOKER;`

// PGDropShowCreateTableFunction removes the helper installed by
// PGShowCreateTableFunction.
const PGDropShowCreateTableFunction = `DROP FUNCTION IF EXISTS show_create_table(p_table_name varchar);`
