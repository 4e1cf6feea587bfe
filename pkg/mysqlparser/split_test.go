package mysqlparser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		statement string
		want      []Statement
	}{
		{
			statement: `
			DELIMITER ;;
			CREATE PROCEDURE dorepeat(p1 INT)
			BEGIN
				DECLARE x INT;
				SET x = 0;
				label1: WHILE x < p1 DO
					SET x = x + 1;
				END WHILE label1;
			END;;
			DELIMITER ;
			CALL dorepeat(1000);
			SELECT x;
			`,
			want: []Statement{
				{
					Text: `			CREATE PROCEDURE dorepeat(p1 INT)
			BEGIN
				DECLARE x INT;
				SET x = 0;
				label1: WHILE x < p1 DO
					SET x = x + 1;
				END WHILE label1;
			END;`,
					BaseLine: 2,
					Start:    Position{Line: 2, Column: 3},
					End:      Position{Line: 9, Column: 7},
				},
				{
					Text:     `			CALL dorepeat(1000);`,
					BaseLine: 11,
					Start:    Position{Line: 11, Column: 3},
					End:      Position{Line: 11, Column: 22},
				},
				{
					Text:     "\n\t\t\tSELECT x;",
					BaseLine: 11,
					Start:    Position{Line: 12, Column: 3},
					End:      Position{Line: 12, Column: 11},
				},
				{
					Text:     "\n\t\t\t",
					BaseLine: 12,
					Start:    Position{Line: 13, Column: 3},
					End:      Position{Line: 13, Column: 2},
					Empty:    true,
				},
			},
		},
		{
			statement: `select * from t;select "\"" where true;`,
			want: []Statement{
				{
					Text:  `select * from t;`,
					Start: Position{Line: 0, Column: 0},
					End:   Position{Line: 0, Column: 15},
				},
				{
					Text:  `select "\"" where true;`,
					Start: Position{Line: 0, Column: 16},
					End:   Position{Line: 0, Column: 38},
				},
			},
		},
		{
			statement: "-- first\n\t\t\t-- second\n",
			want: []Statement{
				{
					Text:  "-- first\n\t\t\t-- second\n",
					Start: Position{Line: 2, Column: 0},
					End:   Position{Line: 1, Column: 12},
					Empty: true,
				},
			},
		},
		{
			statement: "select * from t;\n\t\t\t/* note */;\n\t\t\tselect * from t;",
			want: []Statement{
				{
					Text:  `select * from t;`,
					Start: Position{Line: 0, Column: 0},
					End:   Position{Line: 0, Column: 15},
				},
				{
					Text:  "\n\t\t\t/* note */;",
					Start: Position{Line: 1, Column: 13},
					End:   Position{Line: 1, Column: 13},
					Empty: true,
				},
				{
					Text:     "\n\t\t\tselect * from t;",
					BaseLine: 1,
					Start:    Position{Line: 2, Column: 3},
					End:      Position{Line: 2, Column: 18},
				},
			},
		},
		{
			statement: "    CREATE TABLE t(a int); CREATE TABLE t1(a int)",
			want: []Statement{
				{
					Text:  "    CREATE TABLE t(a int);",
					Start: Position{Line: 0, Column: 4},
					End:   Position{Line: 0, Column: 25},
				},
				{
					Text:  " CREATE TABLE t1(a int)",
					Start: Position{Line: 0, Column: 27},
					End:   Position{Line: 0, Column: 48},
				},
			},
		},
		{
			statement: "CREATE TABLE `tech_Book`(id int, name varchar(255));\n" +
				"INSERT INTO `tech_Book` VALUES (0, 'abce_ksdf'), (1, 'lks''kjsafa\\'jdfl;\"ka');",
			want: []Statement{
				{
					Text:  "CREATE TABLE `tech_Book`(id int, name varchar(255));",
					Start: Position{Line: 0, Column: 0},
					End:   Position{Line: 0, Column: 51},
				},
				{
					Text:  "\nINSERT INTO `tech_Book` VALUES (0, 'abce_ksdf'), (1, 'lks''kjsafa\\'jdfl;\"ka');",
					Start: Position{Line: 1, Column: 0},
					End:   Position{Line: 1, Column: 77},
				},
			},
		},
	}

	for i, test := range tests {
		t.Run(fmt.Sprintf("test_%d", i), func(t *testing.T) {
			res, err := Split(test.statement)
			require.NoError(t, err)
			require.Equal(t, test.want, res)
		})
	}
}

func TestSplit_CompoundStatements(t *testing.T) {
	tests := []struct {
		statement string
		expected  []string
	}{
		{
			statement: "SELECT * FROM t1 WHERE c1 = 1; SELECT * FROM t2;",
			expected: []string{
				"SELECT * FROM t1 WHERE c1 = 1;",
				" SELECT * FROM t2;",
			},
		},
		{
			statement: `CREATE PROCEDURE my_procedure (IN id INT, OUT name VARCHAR(255))
			BEGIN
			  SELECT name INTO name FROM users WHERE id = id;
			END; SELECT * FROM t2;`,
			expected: []string{
				`CREATE PROCEDURE my_procedure (IN id INT, OUT name VARCHAR(255))
			BEGIN
			  SELECT name INTO name FROM users WHERE id = id;
			END;`,
				" SELECT * FROM t2;",
			},
		},
		{
			statement: `CREATE PROCEDURE my_procedure (IN id INT, OUT name VARCHAR(255))
			BEGIN
				SELECT IF(id = 1, 'one', 'other') INTO name FROM users;
			END; SELECT REPEAT('123', a) FROM t2;`,
			expected: []string{
				`CREATE PROCEDURE my_procedure (IN id INT, OUT name VARCHAR(255))
			BEGIN
				SELECT IF(id = 1, 'one', 'other') INTO name FROM users;
			END;`,
				" SELECT REPEAT('123', a) FROM t2;",
			},
		},
		{
			statement: `CREATE PROCEDURE p()
			BEGIN
				REPEAT SET @x = @x + 1; UNTIL @x > 3 END REPEAT;
				IF @x > 3 THEN SET @y = 1; END IF;
			END; DROP TABLE IF EXISTS t;`,
			expected: []string{
				`CREATE PROCEDURE p()
			BEGIN
				REPEAT SET @x = @x + 1; UNTIL @x > 3 END REPEAT;
				IF @x > 3 THEN SET @y = 1; END IF;
			END;`,
				" DROP TABLE IF EXISTS t;",
			},
		},
		{
			statement: "BEGIN; INSERT INTO t VALUES (1); COMMIT;",
			expected:  []string{"BEGIN;", " INSERT INTO t VALUES (1);", " COMMIT;"},
		},
	}

	for _, test := range tests {
		list, err := Split(test.statement)
		require.NoError(t, err)
		require.Equal(t, len(test.expected), len(list))
		for i, statement := range list {
			require.Equal(t, test.expected[i], statement.Text)
		}
	}
}

func TestExtractDelimiter(t *testing.T) {
	d, err := ExtractDelimiter("DELIMITER $$")
	require.NoError(t, err)
	assert.Equal(t, "$$", d)
	assert.True(t, IsDelimiter("  delimiter ;"))
	assert.False(t, IsDelimiter("SELECT 1"))

	_, err = ExtractDelimiter("SELECT 1")
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res := Check("CREATE TABLE t (id INT PRIMARY KEY);\n-- seed\nINSERT INTO t VALUES (1);\nSELECT id FROM t")
		assert.Nil(t, res.Err)
		assert.Equal(t, 3, res.Statements)
	})

	t.Run("delimiter", func(t *testing.T) {
		res := Check("DELIMITER ;;\nCREATE PROCEDURE p()\nBEGIN\n  SELECT 1;\nEND;;\nDELIMITER ;\nCALL p();\n")
		assert.Nil(t, res.Err)
		assert.Equal(t, 2, res.Statements)
	})

	t.Run("syntax error reports the file line", func(t *testing.T) {
		res := Check("CREATE TABLE t (id INT);\nSELEC * FROM t;")
		require.NotNil(t, res.Err)
		assert.Equal(t, 1, res.Err.Position.Line)
		assert.Contains(t, res.Err.Error(), "line 2")
	})

	t.Run("unbalanced block", func(t *testing.T) {
		res := Check("END;")
		require.NotNil(t, res.Err)
	})

	t.Run("empty", func(t *testing.T) {
		res := Check("-- nothing here\n")
		assert.Nil(t, res.Err)
		assert.Zero(t, res.Statements)
	})
}
